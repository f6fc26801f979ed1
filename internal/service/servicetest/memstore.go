// Package servicetest provides in-memory collaborators for tests of the
// account service and its HTTP layer.
package servicetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tripmate/internal/model"
	"github.com/iliyamo/tripmate/internal/queue"
	"github.com/iliyamo/tripmate/internal/repository"
	"github.com/iliyamo/tripmate/internal/utils"
)

// MemStore is an in-memory credential store with the same conflict and
// compare-and-swap semantics as the MySQL store.
type MemStore struct {
	mu    sync.Mutex
	users map[string]model.User

	// FailFind, when set, is returned by every lookup.
	FailFind error
}

func NewMemStore() *MemStore {
	return &MemStore{users: map[string]model.User{}}
}

func (m *MemStore) Create(_ context.Context, fullName, email, password string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fullName = strings.TrimSpace(fullName)
	email = repository.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email || u.FullName == fullName {
			return model.User{}, repository.ErrConflict
		}
	}
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		return model.User{}, err
	}
	now := time.Now().UTC()
	u := model.User{ID: uuid.NewString(), FullName: fullName, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	m.users[u.ID] = u
	return model.User{ID: u.ID, FullName: u.FullName, Email: u.Email, CreatedAt: now, UpdatedAt: now}, nil
}

func (m *MemStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFind != nil {
		return model.User{}, m.FailFind
	}
	email = repository.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *MemStore) FindByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFind != nil {
		return model.User{}, m.FailFind
	}
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (m *MemStore) FindPublicByID(ctx context.Context, id string) (model.User, error) {
	u, err := m.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	u.PasswordHash = ""
	u.RefreshToken = nil
	return u, nil
}

func (m *MemStore) SetRefreshToken(_ context.Context, id string, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshToken = nil
	if token != nil {
		t := *token
		u.RefreshToken = &t
	}
	m.users[id] = u
	return nil
}

func (m *MemStore) RotateRefreshToken(_ context.Context, id, presented, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != presented {
		return repository.ErrStaleRefreshToken
	}
	u.RefreshToken = &next
	m.users[id] = u
	return nil
}

func (m *MemStore) SetPasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *MemStore) HashPassword(plain string) (string, error) {
	return utils.HashPassword(plain, bcrypt.MinCost)
}

func (m *MemStore) VerifyPassword(u model.User, plain string) bool {
	return utils.VerifyPassword(u.PasswordHash, plain)
}

// Stored returns the raw record, hash and refresh token included.
func (m *MemStore) Stored(id string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.users[id])
}

// Count returns the number of users.
func (m *MemStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func copyUser(u model.User) model.User {
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		u.RefreshToken = &t
	}
	return u
}

// RecordingPublisher keeps every published event.  Err is returned from
// each publish.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []queue.AccountRegisteredEvent
	Err    error
}

func (p *RecordingPublisher) PublishAccountRegistered(_ context.Context, ev queue.AccountRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.Err
}

// Events returns a copy of the published events.
func (p *RecordingPublisher) Events() []queue.AccountRegisteredEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.AccountRegisteredEvent(nil), p.events...)
}
