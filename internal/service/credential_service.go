package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/haatos/secpipe/internal/security"
	"github.com/haatos/secpipe/internal/store"
)

type CredentialWriter interface {
	CreateCredential(context.Context, string, string, string, string) (*store.Credential, error)
	UpdateCredential(context.Context, int64, string, string) error
	DeleteCredential(context.Context, string) error
}

type CredentialReader interface {
	ReadCredentialByName(context.Context, string) (*store.Credential, error)
	ListCredentials(context.Context) ([]*store.Credential, error)
}

type CredentialStore interface {
	CredentialWriter
	CredentialReader
}

type CredentialService struct {
	credentialStore CredentialStore
	encrypter       security.Encrypter
}

func NewCredentialService(
	s CredentialStore,
	encrypter security.Encrypter,
) *CredentialService {
	return &CredentialService{credentialStore: s, encrypter: encrypter}
}

func (s *CredentialService) CreateCredential(
	ctx context.Context,
	name, username, description, secret string,
) (*store.Credential, error) {
	hash := s.encrypter.EncryptAES(secret)
	c, err := s.credentialStore.CreateCredential(ctx, name, username, description, hash)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CredentialService) GetCredentialByName(
	ctx context.Context,
	name string,
) (*store.Credential, error) {
	return s.credentialStore.ReadCredentialByName(ctx, name)
}

func (s *CredentialService) ListCredentials(ctx context.Context) ([]*store.Credential, error) {
	credentials, err := s.credentialStore.ListCredentials(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return credentials, nil
}

func (s *CredentialService) UpdateCredential(
	ctx context.Context,
	credentialID int64,
	username, description string,
) error {
	return s.credentialStore.UpdateCredential(ctx, credentialID, username, description)
}

func (s *CredentialService) DeleteCredential(ctx context.Context, name string) error {
	return s.credentialStore.DeleteCredential(ctx, name)
}
