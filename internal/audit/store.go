package audit

import (
	"context"

	pkgerrors "custodia/pkg/domain-errors"
)

var (
	// ErrUnsupported marks sinks that only append, such as kafka.
	ErrUnsupported = pkgerrors.New(pkgerrors.CodeInternal, "sink does not support reads")
)

type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, account string) ([]Event, error)
}
