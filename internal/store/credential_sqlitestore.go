package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type CredentialSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewCredentialSQLiteStore(rdb, rwdb *sql.DB) *CredentialSQLiteStore {
	return &CredentialSQLiteStore{rdb, rwdb}
}

func (store *CredentialSQLiteStore) CreateCredential(
	ctx context.Context,
	name, username, description, secretHash string,
) (*Credential, error) {
	c := &Credential{
		Name:        name,
		Username:    username,
		Description: description,
		SecretHash:  secretHash,
	}
	query := `insert into credentials (
		name,
		username,
		description,
		secret_hash
	)
	values ($1, $2, $3, $4)
	returning credential_id`
	err := sqlscan.Get(ctx, store.rwdb, c, query, c.Name, c.Username, c.Description, c.SecretHash)
	return c, err
}

func (store *CredentialSQLiteStore) ReadCredentialByName(
	ctx context.Context,
	name string,
) (*Credential, error) {
	c := new(Credential)
	query := `select * from credentials where name = $1`
	err := sqlscan.Get(ctx, store.rdb, c, query, name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (store *CredentialSQLiteStore) UpdateCredential(
	ctx context.Context,
	credentialID int64,
	username, description string,
) error {
	query := `update credentials
	set username = $1,
		description = $2
	where credential_id = $3`
	_, err := store.rwdb.ExecContext(ctx, query, username, description, credentialID)
	return err
}

func (store *CredentialSQLiteStore) DeleteCredential(
	ctx context.Context,
	name string,
) error {
	query := `delete from credentials where name = $1`
	_, err := store.rwdb.ExecContext(ctx, query, name)
	return err
}

func (store *CredentialSQLiteStore) ListCredentials(ctx context.Context) ([]*Credential, error) {
	query := `select credential_id, name, username, description, secret_hash from credentials`
	credentials := make([]*Credential, 0)
	err := sqlscan.Select(ctx, store.rdb, &credentials, query)
	return credentials, err
}
