// Package devapi is an in-memory stand-in for the identity API. It serves the
// same routes as the real server so the dashboard can run, and be tested,
// without one.
package devapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nfrund/userhome/internal/domain"
	"github.com/nfrund/userhome/internal/storage"
	"github.com/spf13/afero"
)

// Fixture is the seed data of the development API.
type Fixture struct {
	Config domain.ClientConfig      `json:"config"`
	Users  map[string]*FixtureUser `json:"users" validate:"required,min=1,dive,required"`
}

// FixtureUser is one user account together with the data the identity API
// keeps around it.
type FixtureUser struct {
	Profile        domain.User            `json:"profile"`
	Password       string                 `json:"password" validate:"required,min=6"`
	VerifiedPhones []string               `json:"verifiedPhones"`
	Organizations  domain.Organizations   `json:"organizations"`
	Invitations    []domain.Invitation    `json:"invitations" validate:"dive"`
	Authorizations []domain.Authorization `json:"authorizations" validate:"dive"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(fs afero.Fs, path string) (*Fixture, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return ParseFixture(raw)
}

// Restore reads a snapshot written by Server.Snapshot.
func Restore(ctx context.Context, store storage.Store, path string) (*Fixture, error) {
	r, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes and validates fixture JSON.
func ParseFixture(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the fixture for structural errors. Every verified phone
// must name a registered phone label.
func (f *Fixture) Validate() error {
	if err := domain.Validate(f); err != nil {
		return fmt.Errorf("invalid fixture: %w", err)
	}
	for name, u := range f.Users {
		for _, label := range u.VerifiedPhones {
			if _, ok := u.Profile.Phone[label]; !ok {
				return fmt.Errorf("invalid fixture: user %q verifies unknown phone %q", name, label)
			}
		}
	}
	return nil
}
