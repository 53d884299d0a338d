package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/haatos/secpipe/internal/security"
	"github.com/haatos/secpipe/internal/store"
)

// CredentialError reports an identifier that does not resolve to a stored
// credential. It is fatal for the owning step regardless of the step's
// failure policy: a partially-authenticated call must never be attempted.
type CredentialError struct {
	ID string
}

func (ce CredentialError) Error() string {
	return fmt.Sprintf("credential '%s' does not resolve", ce.ID)
}

// Secret is one resolved credential. Username is empty for token-style
// secrets.
type Secret struct {
	ID       string
	Username string
	Value    string
}

type Resolver interface {
	Resolve(context.Context, string) (*Secret, error)
}

// StoreResolver resolves identifiers against the sqlite credential store,
// decrypting the secret value on the way out.
type StoreResolver struct {
	credentialStore store.CredentialStore
	encrypter       security.Encrypter
}

func NewStoreResolver(s store.CredentialStore, encrypter security.Encrypter) *StoreResolver {
	return &StoreResolver{credentialStore: s, encrypter: encrypter}
}

func (r *StoreResolver) Resolve(ctx context.Context, id string) (*Secret, error) {
	c, err := r.credentialStore.ReadCredentialByName(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, CredentialError{ID: id}
		}
		return nil, err
	}
	value, err := r.encrypter.DecryptAES(c.SecretHash)
	if err != nil {
		return nil, CredentialError{ID: id}
	}
	return &Secret{ID: id, Username: c.Username, Value: string(value)}, nil
}

// Vault hands out scope-limited credential bindings and is the single
// authority for which substrings must be masked out of retained output.
type Vault struct {
	resolver Resolver
	masker   *Masker
}

func New(resolver Resolver) *Vault {
	return &Vault{resolver: resolver, masker: NewMasker()}
}

func (v *Vault) Masker() *Masker {
	return v.masker
}

// Bind resolves ids into environment variables named <ID>_USR/<ID>_PSW, or
// <ID>_TOKEN for secrets without a username, and passes them to fn. The
// materialized values are registered with the masker before fn runs and are
// zeroed on every exit path, including a panic inside fn.
func (v *Vault) Bind(
	ctx context.Context,
	ids []string,
	fn func(map[string]string) error,
) error {
	vars := make(map[string]string)
	defer func() {
		for k := range vars {
			vars[k] = ""
			delete(vars, k)
		}
	}()

	for _, id := range ids {
		secret, err := v.resolver.Resolve(ctx, id)
		if err != nil {
			return err
		}
		v.masker.Add(secret.Value)

		prefix := envPrefix(id)
		if secret.Username == "" {
			vars[prefix+"_TOKEN"] = secret.Value
		} else {
			vars[prefix+"_USR"] = secret.Username
			vars[prefix+"_PSW"] = secret.Value
		}
	}

	return fn(vars)
}

func envPrefix(id string) string {
	var builder strings.Builder
	for _, r := range strings.ToUpper(id) {
		if 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' {
			builder.WriteRune(r)
		} else {
			builder.WriteRune('_')
		}
	}
	return builder.String()
}
