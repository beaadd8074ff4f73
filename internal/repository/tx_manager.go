package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Merchants() MerchantRepository
	Products() ProductRepository
	Sales() SaleRepository
}

// 呼び出し側からTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
