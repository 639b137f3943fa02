package storage

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/trixelnet/contributor/pkg/errors"
)

const filePermissions = 0o644

type fileIdentity struct {
	sync.Mutex

	path string
}

// NewFileIdentity persists the station identity as JSON at the given path
// so the station keeps its server-issued ID and token across restarts.
func NewFileIdentity(path string) IdentityStore {
	return &fileIdentity{path: path}
}

func (s *fileIdentity) Load(_ context.Context) (StationIdentity, error) {
	s.Lock()
	defer s.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return StationIdentity{}, errors.ErrNotFound
		}

		return StationIdentity{}, fmt.Errorf("unable to read identity file '%s': %w", s.path, err)
	}

	var identity StationIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return StationIdentity{}, fmt.Errorf("failed to parse identity file '%s': %w", s.path, err)
	}
	if identity.StationID == "" || identity.Token == "" {
		return StationIdentity{}, goerrors.Join(errors.ErrInvalidData, goerrors.New("identity file missing station id or token"))
	}

	return identity, nil
}

func (s *fileIdentity) Save(_ context.Context, identity StationIdentity) error {
	s.Lock()
	defer s.Unlock()

	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.path, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write identity file '%s': %w", s.path, err)
	}

	return nil
}

func (s *fileIdentity) Clear(_ context.Context) error {
	s.Lock()
	defer s.Unlock()

	if err := os.Remove(s.path); err != nil && !goerrors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
