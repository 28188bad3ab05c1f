package lifecycle

import (
	"context"

	"parcel-dispatch/internal/ports/deliverytx"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx deliverytx.Repository) error) error
}
