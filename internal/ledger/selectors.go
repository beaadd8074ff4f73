package ledger

// 読み取り専用のセレクタ。どれもStateを変更しない。

// ActiveCart は現在のmerchant配下にあるアクティブカート
func ActiveCart(s State) (Cart, bool) {
	c, ok := activeCart(s)
	if !ok {
		return Cart{}, false
	}
	return c.clone(), true
}

func CartCount(s State) int {
	if s.CurrentMerchantID == "" {
		return 0
	}
	return len(s.CartsByMerchant[s.CurrentMerchantID])
}

// CartList は順序の保証なし（呼び出し側の表示用に作成日時順で返す）
func CartList(s State) []Cart {
	if s.CurrentMerchantID == "" {
		return []Cart{}
	}
	out := sortedByAge(s.CartsByMerchant[s.CurrentMerchantID])
	for i := range out {
		out[i] = out[i].clone()
	}
	return out
}

// OldestCarts は作成日時の昇順でlimit件まで
func OldestCarts(s State, limit int) []Cart {
	if limit <= 0 {
		return []Cart{}
	}
	list := CartList(s)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

// FindCart は現在のmerchant配下のカートをIDで探す
func FindCart(s State, cartID string) (Cart, bool) {
	c, ok := lookup(s, cartID)
	if !ok {
		return Cart{}, false
	}
	return c.clone(), true
}
