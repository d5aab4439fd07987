package store

import (
	"context"
	"time"
)

// Secret holds an encrypted value; the store never sees plaintext.
type Secret struct {
	Name      string    `db:"name"`
	Value     string    `db:"value"`
	CreatedOn time.Time `db:"created_on"`
	UpdatedOn time.Time `db:"updated_on"`
}

type SecretStore interface {
	UpsertSecret(context.Context, string, string) error
	ReadSecret(context.Context, string) (*Secret, error)
	DeleteSecret(context.Context, string) error
	ListSecrets(context.Context) ([]Secret, error)
}
