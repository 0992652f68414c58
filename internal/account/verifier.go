package account

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/roadwatch/internal/apperr"
	"github.com/geocoder89/roadwatch/internal/domain/user"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/geocoder89/roadwatch/internal/account")

// CredentialStore is the read side of the users relation. Each call is an
// independent round trip: no caching, no transaction.
type CredentialStore interface {
	Exists(ctx context.Context, username string) (bool, error)
	FetchPasswordHash(ctx context.Context, username string) (string, error)
	FetchDeactivatedUntil(ctx context.Context, username string) (*time.Time, error)
	FetchRole(ctx context.Context, username string) (string, error)
}

type PasswordManager interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

type AuthRecord struct {
	PasswordHash     string
	DeactivatedUntil *time.Time
}

type Verifier struct {
	store     CredentialStore
	passwords PasswordManager
	now       func() time.Time
}

func NewVerifier(store CredentialStore, passwords PasswordManager) *Verifier {
	return &Verifier{
		store:     store,
		passwords: passwords,
		now:       time.Now,
	}
}

// Authenticate reports whether username/password belong to an active user.
// An unknown username fails exactly like a wrong password would at the
// caller, so the response never reveals which accounts exist.
func (v *Verifier) Authenticate(ctx context.Context, username, password string) (ok bool, err error) {
	if username == "" || password == "" {
		return false, apperr.Incomplete("Username and password required.")
	}

	ctx, span := tracer.Start(ctx, "account.Authenticate")
	defer func() {
		span.SetAttributes(attribute.Bool("auth.ok", ok))
		if err != nil {
			span.SetStatus(codes.Error, apperr.KindOf(err).Key())
		}
		span.End()
	}()

	exists, err := v.store.Exists(ctx, username)
	if err != nil {
		return false, apperr.Wrap(err)
	}

	if !exists {
		return false, apperr.IncorrectCredentials()
	}

	rec, err := v.FetchAuthRecord(ctx, username)
	if err != nil {
		return false, err
	}

	if until := DeactivatedUntil(rec.DeactivatedUntil, v.now()); until != nil {
		return false, apperr.Deactivated(*until)
	}

	return v.passwords.Verify(password, rec.PasswordHash)
}

// FetchAuthRecord reads the stored hash and the deactivation timestamp in
// parallel and waits for both. A row that vanished since the existence check
// is reported as incorrect credentials.
func (v *Verifier) FetchAuthRecord(ctx context.Context, username string) (AuthRecord, error) {
	var (
		g   errgroup.Group
		rec AuthRecord
	)

	g.Go(func() error {
		hash, err := v.store.FetchPasswordHash(ctx, username)
		rec.PasswordHash = hash
		return err
	})

	g.Go(func() error {
		until, err := v.store.FetchDeactivatedUntil(ctx, username)
		rec.DeactivatedUntil = until
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return AuthRecord{}, apperr.IncorrectCredentials()
		}
		return AuthRecord{}, apperr.Wrap(err)
	}

	return rec, nil
}

// AuthorizeAdmin authenticates the caller and then checks the admin role.
// Credential failures propagate unchanged, so false only ever means "valid
// user without the admin role".
func (v *Verifier) AuthorizeAdmin(ctx context.Context, username, password string) (bool, error) {
	ok, err := v.Authenticate(ctx, username, password)
	if err != nil {
		return false, err
	}

	if !ok {
		return false, apperr.IncorrectCredentials()
	}

	role, err := v.store.FetchRole(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, apperr.IncorrectCredentials()
		}
		return false, apperr.Wrap(err)
	}

	return role == user.RoleAdmin, nil
}
