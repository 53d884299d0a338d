package store

import "context"

type Credential struct {
	CredentialID int64
	Name         string
	Username     string
	Description  string
	SecretHash   string
}

type CredentialStore interface {
	CreateCredential(context.Context, string, string, string, string) (*Credential, error)
	ReadCredentialByName(context.Context, string) (*Credential, error)
	UpdateCredential(context.Context, int64, string, string) error
	DeleteCredential(context.Context, string) error
	ListCredentials(context.Context) ([]*Credential, error)
}
