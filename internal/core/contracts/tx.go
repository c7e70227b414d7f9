package contracts

import "context"

// TxManager runs fn inside one database transaction; repositories pick the
// transaction up from the context.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
