package repository

import "context"

// TokenStore is the set of repositories written when tokens are issued.
type TokenStore interface {
	Sessions() SessionRepository
	Tokens() TokenRepository
}

// Transactor is implemented by stores that can bind a TokenStore to a single
// transaction. fn's writes are committed together when it returns nil and
// discarded otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(TokenStore) error) error
}
