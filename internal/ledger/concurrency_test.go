package ledger_test

import (
	"fmt"
	"sync"
	"testing"

	"pos/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireConsistent は保存されうる状態としての整合性を確認する
func requireConsistent(t *testing.T, s ledger.State) {
	t.Helper()
	for merchantID, carts := range s.CartsByMerchant {
		for id, c := range carts {
			require.Equal(t, merchantID, c.MerchantID, "cart %s stored under wrong merchant", id)
			require.Equal(t, id, c.ID)
			require.True(t, ledger.SumLines(c.Lines).Equal(c.Total), "cart %s total %s != sum of lines", id, c.Total)

			seen := map[string]bool{}
			for _, line := range c.Lines {
				require.False(t, seen[line.Product.ID], "cart %s has duplicate line %s", id, line.Product.ID)
				seen[line.Product.ID] = true
				require.GreaterOrEqual(t, line.Quantity, 1, "cart %s line %s", id, line.Product.ID)
			}
		}
	}
	if s.ActiveCartID != "" {
		_, ok := s.CartsByMerchant[s.CurrentMerchantID][s.ActiveCartID]
		require.True(t, ok, "active cart %s not under merchant %q", s.ActiveCartID, s.CurrentMerchantID)
	}
}

func TestLedger_ConcurrentOperationsStayConsistent(t *testing.T) {
	var (
		mu       sync.Mutex
		observed []ledger.State
	)
	l := newLedger(ledger.WithObserver(func(s ledger.State) {
		mu.Lock()
		observed = append(observed, s)
		mu.Unlock()
	}))
	l.CreateCart("m1", "first", "", "")

	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				productID := fmt.Sprintf("p%d", (w+i)%5)
				switch (w*rounds + i) % 7 {
				case 0:
					l.CreateCart("m1", "", "", "")
				case 1, 2:
					l.AddToCart(product(productID, int64(10+i%3)))
				case 3:
					l.UpdateQuantity(productID, i%4-1)
				case 4:
					if carts := l.CartList(); len(carts) > 0 {
						l.SwitchCart(carts[i%len(carts)].ID)
					}
				case 5:
					l.CheckoutCart()
				case 6:
					// merchantの切り替えで別merchantのアクティブが残らないこと
					if w%2 == 0 {
						l.SetCurrentMerchant("m2")
						l.CreateCart("m2", "", "", "")
						l.SetCurrentMerchant("m1")
					} else {
						l.RemoveFromCart(productID)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	requireConsistent(t, l.Snapshot())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, observed)
	for _, s := range observed {
		requireConsistent(t, s)
	}
	assert.Equal(t, l.Snapshot(), observed[len(observed)-1])
}

func TestLedger_ConcurrentCheckoutRemovesEachCartOnce(t *testing.T) {
	l := newLedger()
	const carts = 20
	for i := 0; i < carts; i++ {
		l.CreateCart("m1", "", "", "")
		l.AddToCart(product("p1", 10))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		removed = map[string]int{}
	)
	for w := 0; w < carts+5; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, ok := l.CheckoutCart()
			if !ok {
				return
			}
			mu.Lock()
			removed[c.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, removed, carts)
	for id, n := range removed {
		assert.Equal(t, 1, n, "cart %s checked out more than once", id)
	}
	assert.Empty(t, l.CartList())
	assert.Equal(t, "", l.Snapshot().ActiveCartID)
}
