package db

import (
	"context"
	"fmt"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"github.com/shopspring/decimal"
)

// デモ用のmerchantと商品。何度流しても同じ結果になる。

var demoMerchants = []model.Merchant{
	{
		ID:          "merchant-001",
		Name:        "คาเฟ่และเบเกอรี่",
		Type:        model.MerchantTypeFood,
		LogoURL:     "https://via.placeholder.com/100?text=Cafe",
		Color:       "#10b981",
		Description: "ร้านกาแฟ ชา และขนมเบเกอรี่",
	},
	{
		ID:          "merchant-002",
		Name:        "วัสดุก่อสร้างครบวงจร",
		Type:        model.MerchantTypeConstruction,
		LogoURL:     "https://via.placeholder.com/100?text=BuildingSupply",
		Color:       "#f59e0b",
		Description: "จำหน่ายวัสดุก่อสร้างและอุปกรณ์สำหรับงานช่าง",
	},
}

var demoAccess = map[string][]string{
	"emp1234": {"merchant-001", "merchant-002"},
	"emp5678": {"merchant-001"},
}

type demoProduct struct {
	id, name string
	price    int64
	category string
	image    string
}

var demoProducts = map[string][]demoProduct{
	"merchant-001": {
		{"001", "อเมริกาโน่", 55, "coffee", "Coffee"},
		{"002", "ลาเต้", 60, "coffee", "Latte"},
		{"003", "ชาเขียวนม", 50, "tea", "Tea"},
		{"004", "ชานมไข่มุก", 65, "tea", "BubbleTea"},
		{"005", "เค้กช็อกโกแลต", 75, "bakery", "Cake"},
		{"006", "คุกกี้", 35, "bakery", "Cookie"},
		{"007", "น้ำส้ม", 45, "juice", "Orange"},
		{"008", "น้ำแอปเปิ้ล", 45, "juice", "Apple"},
	},
	"merchant-002": {
		{"101", "ปูนซีเมนต์ 50kg", 150, "cement", "Cement"},
		{"102", "ทรายละเอียด 50kg", 60, "sand", "Sand"},
		{"103", "อิฐบล็อก 10cm", 7, "brick", "Block"},
		{"104", `ท่อ PVC 4"`, 120, "pipe", "PVC"},
		{"105", "สีน้ำภายนอก 5L", 850, "paint", "Paint"},
		{"106", "ตะปู 1kg", 65, "tools", "Nail"},
		{"107", "ค้อน", 250, "tools", "Hammer"},
		{"108", "สว่านไฟฟ้า", 1500, "tools", "Drill"},
	},
}

// SeedDemo はデモデータを1つのトランザクションで投入する。バーコードは商品IDと同じ。
func SeedDemo(ctx context.Context, tm repo.TransactionManager) error {
	return tm.WithinTx(ctx, func(r repo.TxRepos) error {
		return seed(ctx, r.Merchants(), r.Products())
	})
}

func seed(ctx context.Context, merchants repo.MerchantRepository, products repo.ProductRepository) error {
	for _, m := range demoMerchants {
		if err := merchants.Upsert(ctx, m); err != nil {
			return fmt.Errorf("seed merchant %s: %w", m.ID, err)
		}
		for _, p := range demoProducts[m.ID] {
			err := products.Upsert(ctx, model.Product{
				MerchantID: m.ID,
				ID:         p.id,
				Barcode:    p.id,
				Name:       p.name,
				Price:      decimal.NewFromInt(p.price),
				Category:   p.category,
				ImageURL:   "https://via.placeholder.com/100?text=" + p.image,
			})
			if err != nil {
				return fmt.Errorf("seed product %s/%s: %w", m.ID, p.id, err)
			}
		}
	}

	for employeeID, merchantIDs := range demoAccess {
		for _, merchantID := range merchantIDs {
			if err := merchants.GrantAccess(ctx, employeeID, merchantID); err != nil {
				return fmt.Errorf("seed access %s->%s: %w", employeeID, merchantID, err)
			}
		}
	}
	return nil
}
