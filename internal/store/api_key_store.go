package store

import (
	"context"
	"time"
)

type APIKey struct {
	ID          int64     `db:"id" json:"id"`
	Hash        string    `db:"hash" json:"-"`
	Description string    `db:"description" json:"description"`
	CreatedOn   time.Time `db:"created_on" json:"created_on"`
}

type APIKeyStore interface {
	CreateAPIKey(context.Context, string, string) (*APIKey, error)
	ReadAPIKeyByID(context.Context, int64) (*APIKey, error)
	DeleteAPIKey(context.Context, int64) error
	ListAPIKeys(context.Context) ([]APIKey, error)
}
