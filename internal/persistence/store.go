package persistence

import (
	"context"
	"errors"
)

var (
	ErrNotInitialized = errors.New("persistence: store not initialized")
	ErrClosed         = errors.New("persistence: store closed")
)

// Namespace names the database and the store inside it.
type Namespace struct {
	Name      string
	StoreName string
}

func DefaultNamespace() Namespace {
	return Namespace{Name: "tropical-lagoon", StoreName: "game-state"}
}

// Store is a string-keyed item store holding raw JSON values.
type Store interface {
	GetItem(ctx context.Context, key string) ([]byte, bool, error)
	SetItem(ctx context.Context, key string, value []byte) error
	Close() error
}

// Opener creates the backing store when the queue is initialized.
type Opener func(ctx context.Context) (Store, error)
