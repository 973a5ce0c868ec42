package gateway

import "context"

// StoreObserver receives query lifecycle hooks from store implementations.
// Optional: pass NopStoreObserver when nobody is listening.
type StoreObserver interface {
	OnQueryStart(ctx context.Context, operation string)
	OnQueryError(ctx context.Context, operation string, err error)
}

type NopStoreObserver struct{}

func (NopStoreObserver) OnQueryStart(context.Context, string) {}

func (NopStoreObserver) OnQueryError(context.Context, string, error) {}
