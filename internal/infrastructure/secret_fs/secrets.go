package secret_fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/tagship/tagship/internal/domain"
)

// Store resolves named secrets from a directory with one file per
// secret, the layout mounted secret stores commonly expose. An
// environment variable, when set, overrides the directory so local
// runs need no secret files on disk. Credentials are never cached
// across runs; every Bind reads the source again.
type Store struct {
	dir    string
	envVar string
}

func New(dir, envVar string) *Store { return &Store{dir: dir, envVar: envVar} }

func (s *Store) Bind(_ context.Context, name string) (domain.Credential, error) {
	if name == "" {
		return domain.Credential{}, &domain.AuthError{Name: name, Err: errors.New("empty secret name")}
	}

	if s.envVar != "" {
		if v := os.Getenv(s.envVar); strings.TrimSpace(v) != "" {
			return domain.NewCredential(strings.TrimSpace(v)), nil
		}
	}

	if s.dir == "" {
		return domain.Credential{}, &domain.AuthError{Name: name, Err: errors.New("no secret store configured")}
	}

	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return domain.Credential{}, &domain.AuthError{Name: name, Err: err}
	}

	token := strings.TrimSpace(string(b))
	if token == "" {
		return domain.Credential{}, &domain.AuthError{Name: name, Err: errors.New("secret is empty")}
	}

	return domain.NewCredential(token), nil
}
