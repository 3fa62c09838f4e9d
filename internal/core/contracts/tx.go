package contracts

import "context"

// TxRunner executes fn inside one transactional unit of work. fn receives
// a context carrying the transaction; repository calls made with it share
// the same commit. The transaction commits only if fn returns nil.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
