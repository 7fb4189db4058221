// Package usertest provides an in-memory user.Store for tests.
package usertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radiusfinancial/radius-api/internal/user"
)

// Store is a user.Store kept in memory. Key consumption follows the same
// conditional semantics as the database repository.
type Store struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User

	// Err, when set, is returned by every method.
	Err error
}

var _ user.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{users: make(map[uuid.UUID]*user.User)}
}

// Get returns a copy of the stored user or nil.
func (s *Store) Get(id uuid.UUID) *user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return clone(u)
	}
	return nil
}

// Put stores u as-is, replacing any user with the same id.
func (s *Store) Put(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = clone(u)
}

func (s *Store) Create(_ context.Context, params user.CreateParams) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	email := user.NormalizeEmail(params.Email)
	for _, u := range s.users {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
	}

	now := time.Now()
	u := &user.User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  params.PasswordHash,
		FirstName:     params.FirstName,
		LastName:      params.LastName,
		PreferredName: params.PreferredName,
		Gender:        params.Gender,
		Birthdate:     params.Birthdate,
		Phone:         params.Phone,
		IsSuperuser:   params.IsSuperuser,
		IsDeveloper:   params.IsDeveloper,
		DateJoined:    now,
		ValidatedAt:   params.ValidatedAt,
		UpdatedAt:     now,
	}
	s.users[u.ID] = u
	return clone(u), nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.ID == id })
}

func (s *Store) GetByEmail(_ context.Context, email string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	return s.find(func(u *user.User) bool { return u.Email == email })
}

func (s *Store) GetByKey(_ context.Context, value string, purpose user.Purpose) (*user.User, error) {
	keyValue, err := uuid.Parse(value)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return s.find(func(u *user.User) bool {
		return u.Key != nil && u.Key.Purpose == purpose && u.Key.Value == keyValue
	})
}

func (s *Store) List(_ context.Context, filter user.ListFilter) ([]*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		if filter.ID != nil && u.ID != *filter.ID {
			continue
		}
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateJoined.Before(out[j].DateJoined) })
	return out, nil
}

func (s *Store) UpdateProfile(_ context.Context, u *user.User) error {
	return s.update(u.ID, func(stored *user.User) bool {
		stored.FirstName = u.FirstName
		stored.LastName = u.LastName
		stored.PreferredName = u.PreferredName
		stored.Gender = u.Gender
		stored.Birthdate = u.Birthdate
		stored.Phone = u.Phone
		stored.IsDeveloper = u.IsDeveloper
		stored.IsSuperuser = u.IsSuperuser
		stored.UpdatedAt = time.Now()
		return true
	})
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) SetKey(_ context.Context, id uuid.UUID, key user.Key) error {
	return s.update(id, func(stored *user.User) bool {
		k := key
		stored.Key = &k
		return true
	})
}

func (s *Store) ConsumeValidationKey(_ context.Context, id, value uuid.UUID, at time.Time) error {
	return s.update(id, func(stored *user.User) bool {
		if !holds(stored, user.PurposeValidation, value) {
			return false
		}
		stored.Key = nil
		if stored.ValidatedAt == nil {
			stored.ValidatedAt = &at
		}
		return true
	})
}

func (s *Store) ConsumeResetKey(_ context.Context, id, value uuid.UUID, passwordHash string) error {
	return s.update(id, func(stored *user.User) bool {
		if !holds(stored, user.PurposeReset, value) {
			return false
		}
		stored.Key = nil
		stored.PasswordHash = passwordHash
		return true
	})
}

func (s *Store) MarkValidated(_ context.Context, id uuid.UUID, at time.Time) error {
	return s.update(id, func(stored *user.User) bool {
		if stored.HasKey(user.PurposeValidation) {
			stored.Key = nil
		}
		if stored.ValidatedAt == nil {
			stored.ValidatedAt = &at
		}
		return true
	})
}

func (s *Store) SetImage(_ context.Context, id uuid.UUID, key string) error {
	return s.update(id, func(stored *user.User) bool {
		stored.Image = &key
		return true
	})
}

func (s *Store) RecordLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	_ = s.update(id, func(stored *user.User) bool {
		stored.LastLogin = &at
		return true
	})
	return s.Err
}

func (s *Store) find(match func(*user.User) bool) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *Store) update(id uuid.UUID, apply func(*user.User) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	stored, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	if !apply(stored) {
		return user.ErrNotFound
	}
	return nil
}

func holds(u *user.User, purpose user.Purpose, value uuid.UUID) bool {
	return u.Key != nil && u.Key.Purpose == purpose && u.Key.Value == value
}

func clone(u *user.User) *user.User {
	cp := *u
	if u.Key != nil {
		k := *u.Key
		cp.Key = &k
	}
	return &cp
}
