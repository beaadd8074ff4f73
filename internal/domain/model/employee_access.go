package model

// 従業員がどのmerchantを操作できるか
type EmployeeMerchantAccess struct {
	EmployeeID string `gorm:"primaryKey;type:varchar(64)"`
	MerchantID string `gorm:"primaryKey;type:varchar(64)"`
}

func (EmployeeMerchantAccess) TableName() string {
	return "employee_merchant_access"
}
