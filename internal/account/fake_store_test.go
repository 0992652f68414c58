package account

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geocoder89/roadwatch/internal/domain/user"
	"github.com/geocoder89/roadwatch/internal/security"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore is an in-memory users relation that counts every round trip so
// tests can assert that validation happens before any store access.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*user.User
	calls atomic.Int64

	// failWith, when set, is returned by every read and write.
	failWith error
	// createFn overrides Create, e.g. to simulate a unique violation.
	createFn func(ctx context.Context, u user.NewUser) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*user.User)}
}

var testPasswords = security.NewPasswords(bcrypt.MinCost)

func (f *fakeStore) add(username, password, role string, deactivatedUntil *time.Time) {
	hash, err := testPasswords.Hash(password)
	if err != nil {
		panic(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.users[username] = &user.User{
		ID:               len(f.users) + 1,
		Username:         username,
		PasswordHash:     hash,
		FirstName:        "First",
		LastName:         "Last",
		RoleName:         role,
		CreatedOn:        time.Now().UTC(),
		DeactivatedUntil: deactivatedUntil,
	}
}

func (f *fakeStore) get(username string) (user.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[username]
	if !ok {
		return user.User{}, false
	}
	return *u, true
}

func (f *fakeStore) touch() error {
	f.calls.Add(1)
	return f.failWith
}

func (f *fakeStore) Exists(_ context.Context, username string) (bool, error) {
	if err := f.touch(); err != nil {
		return false, err
	}
	_, ok := f.get(username)
	return ok, nil
}

func (f *fakeStore) FetchPasswordHash(_ context.Context, username string) (string, error) {
	if err := f.touch(); err != nil {
		return "", err
	}
	u, ok := f.get(username)
	if !ok {
		return "", user.ErrNotFound
	}
	return u.PasswordHash, nil
}

func (f *fakeStore) FetchDeactivatedUntil(_ context.Context, username string) (*time.Time, error) {
	if err := f.touch(); err != nil {
		return nil, err
	}
	u, ok := f.get(username)
	if !ok {
		return nil, user.ErrNotFound
	}
	return u.DeactivatedUntil, nil
}

func (f *fakeStore) FetchRole(_ context.Context, username string) (string, error) {
	if err := f.touch(); err != nil {
		return "", err
	}
	u, ok := f.get(username)
	if !ok {
		return "", user.ErrNotFound
	}
	return u.RoleName, nil
}

func (f *fakeStore) FetchProfile(_ context.Context, username string) (user.Profile, error) {
	if err := f.touch(); err != nil {
		return user.Profile{}, err
	}
	u, ok := f.get(username)
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	return user.Profile{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		RoleName:  u.RoleName,
		CreatedOn: u.CreatedOn,
	}, nil
}

var errUniqueViolation = errors.New(`duplicate key value violates unique constraint "vze_user_username_key"`)

func (f *fakeStore) Create(ctx context.Context, nu user.NewUser) error {
	if err := f.touch(); err != nil {
		return err
	}
	if f.createFn != nil {
		return f.createFn(ctx, nu)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[nu.Username]; ok {
		return errUniqueViolation
	}

	f.users[nu.Username] = &user.User{
		ID:           len(f.users) + 1,
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		RoleName:     nu.RoleName,
		CreatedOn:    time.Now().UTC(),
	}
	return nil
}

func (f *fakeStore) Update(_ context.Context, username string, upd user.Update) error {
	if err := f.touch(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[username]
	if !ok {
		return user.ErrNotFound
	}

	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.RoleName != nil {
		u.RoleName = *upd.RoleName
	}
	if upd.SetDeactivation {
		u.DeactivatedUntil = upd.DeactivatedUntil
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, username string) error {
	if err := f.touch(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[username]; !ok {
		return user.ErrNotFound
	}
	delete(f.users, username)
	return nil
}
