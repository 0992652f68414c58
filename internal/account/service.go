package account

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/geocoder89/roadwatch/internal/apperr"
	"github.com/geocoder89/roadwatch/internal/domain/user"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

const (
	KeyUserRequested   = "USER_REQUESTED"
	KeyUserCreated     = "USER_CREATED"
	KeyPasswordChanged = "PASSWORD_CHANGED"
	KeyUserEdited      = "USER_EDITED"
	KeyUserDeleted     = "USER_DELETED"
)

// Store is everything the account operations need from the users relation.
type Store interface {
	CredentialStore
	FetchProfile(ctx context.Context, username string) (user.Profile, error)
	Create(ctx context.Context, u user.NewUser) error
	Update(ctx context.Context, username string, upd user.Update) error
	Delete(ctx context.Context, username string) error
}

// Result is the success half of an operation; failures come back as *apperr.Error.
type Result struct {
	Key     string
	Message string
	Data    any
}

type Service struct {
	store     Store
	verifier  *Verifier
	passwords PasswordManager
	validate  *validator.Validate
	log       *slog.Logger
}

func NewService(store Store, passwords PasswordManager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:     store,
		verifier:  NewVerifier(store, passwords),
		passwords: passwords,
		validate:  newValidator(),
		log:       log,
	}
}

func (s *Service) Verifier() *Verifier {
	return s.verifier
}

// Login authenticates and returns the user's profile.
func (s *Service) Login(ctx context.Context, req user.LoginRequest) (Result, error) {
	if err := s.require(req, "Username and password required."); err != nil {
		return Result{}, err
	}

	if err := s.Authenticated(ctx, req.Username, req.Password); err != nil {
		return Result{}, err
	}

	profile, err := s.store.FetchProfile(ctx, req.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Result{}, apperr.IncorrectCredentials()
		}
		return Result{}, apperr.Wrap(err)
	}

	s.log.InfoContext(ctx, "user logged in", "username", profile.Username, "role", profile.RoleName)

	return Result{Key: KeyUserRequested, Message: "User request successful.", Data: profile}, nil
}

// Authenticated is the read-endpoint gate: any authenticated, active user passes.
func (s *Service) Authenticated(ctx context.Context, username, password string) error {
	ok, err := s.verifier.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}

	if !ok {
		return apperr.IncorrectCredentials()
	}

	return nil
}

// Register creates a user on behalf of an admin.
//
// The existence check and the insert are separate statements. Two concurrent
// registrations of the same name both pass the check; the loser hits the
// unique constraint and gets a storage failure instead of ErrUserExists.
func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (Result, error) {
	if err := s.require(req, "Registration data incomplete."); err != nil {
		return Result{}, err
	}

	var (
		g                            errgroup.Group
		isAdmin, exists              bool
		hash                         string
		adminErr, existsErr, hashErr error
	)

	g.Go(func() error {
		isAdmin, adminErr = s.verifier.AuthorizeAdmin(ctx, req.AdminUsername, req.AdminPassword)
		return adminErr
	})
	g.Go(func() error {
		exists, existsErr = s.store.Exists(ctx, req.Username)
		return existsErr
	})
	g.Go(func() error {
		hash, hashErr = s.passwords.Hash(req.Password)
		return hashErr
	})

	// precedence is admin, existence, hash regardless of which finished first
	_ = g.Wait()

	if err := adminGate(isAdmin, adminErr); err != nil {
		return Result{}, err
	}

	if existsErr != nil {
		return Result{}, apperr.Wrap(existsErr)
	}

	if exists {
		return Result{}, apperr.ErrUserExists
	}

	if hashErr != nil {
		return Result{}, hashErr
	}

	err := s.store.Create(ctx, user.NewUser{
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		RoleName:     req.RoleName,
	})
	if err != nil {
		return Result{}, apperr.Wrap(err)
	}

	s.log.InfoContext(ctx, "user created", "username", req.Username, "role", req.RoleName, "by", req.AdminUsername)

	return Result{Key: KeyUserCreated, Message: "The user was successfully created."}, nil
}

// ChangePassword is self-service: the user proves the current password.
//
// Reading the old hash and writing the new one are not isolated. Two
// concurrent changes for the same user can interleave and the last write wins.
func (s *Service) ChangePassword(ctx context.Context, req user.ChangePasswordRequest) (Result, error) {
	if err := s.require(req, "Change password data is incomplete."); err != nil {
		return Result{}, err
	}

	if req.NewPassword == req.Password {
		return Result{}, apperr.New(apperr.KindPasswordReuse, "")
	}

	var (
		g                errgroup.Group
		ok               bool
		hash             string
		authErr, hashErr error
	)

	g.Go(func() error {
		ok, authErr = s.verifier.Authenticate(ctx, req.Username, req.Password)
		return authErr
	})
	g.Go(func() error {
		hash, hashErr = s.passwords.Hash(req.NewPassword)
		return hashErr
	})

	_ = g.Wait()

	if authErr != nil {
		return Result{}, authErr
	}

	if !ok {
		return Result{}, apperr.IncorrectCredentials()
	}

	if hashErr != nil {
		return Result{}, hashErr
	}

	if err := s.store.Update(ctx, req.Username, user.Update{PasswordHash: &hash}); err != nil {
		return Result{}, s.mutationErr(err)
	}

	s.log.InfoContext(ctx, "user password changed", "username", req.Username)

	return Result{Key: KeyPasswordChanged, Message: "The user password has been successfully changed."}, nil
}

// Edit applies a partial update on behalf of an admin. An unparsable
// deactivatedUntil clears the deactivation instead of failing.
func (s *Service) Edit(ctx context.Context, req user.EditRequest) (Result, error) {
	if err := s.require(req, "Change user data is incomplete."); err != nil {
		return Result{}, err
	}

	upd := user.Update{
		FirstName: optional(req.FirstName),
		LastName:  optional(req.LastName),
		RoleName:  optional(req.RoleName),
	}

	if req.DeactivatedUntil != "" {
		upd.SetDeactivation = true
		upd.DeactivatedUntil = ParseDeactivation(req.DeactivatedUntil)
	}

	var (
		g                            errgroup.Group
		isAdmin, exists              bool
		hash                         string
		adminErr, existsErr, hashErr error
	)

	g.Go(func() error {
		isAdmin, adminErr = s.verifier.AuthorizeAdmin(ctx, req.AdminUsername, req.AdminPassword)
		return adminErr
	})
	g.Go(func() error {
		exists, existsErr = s.store.Exists(ctx, req.Username)
		return existsErr
	})
	if req.Password != "" {
		g.Go(func() error {
			hash, hashErr = s.passwords.Hash(req.Password)
			return hashErr
		})
	}

	_ = g.Wait()

	if err := adminGate(isAdmin, adminErr); err != nil {
		return Result{}, err
	}

	if existsErr != nil {
		return Result{}, apperr.Wrap(existsErr)
	}

	if !exists {
		return Result{}, apperr.IncorrectCredentials()
	}

	if hashErr != nil {
		return Result{}, hashErr
	}

	if req.Password != "" {
		upd.PasswordHash = &hash
	}

	if err := s.store.Update(ctx, req.Username, upd); err != nil {
		return Result{}, s.mutationErr(err)
	}

	s.log.InfoContext(ctx, "user edited", "username", req.Username, "by", req.AdminUsername)

	return Result{Key: KeyUserEdited, Message: "The user has been successfully edited."}, nil
}

// Delete permanently removes a user on behalf of an admin.
func (s *Service) Delete(ctx context.Context, req user.DeleteRequest) (Result, error) {
	if err := s.require(req, "Delete user data is incomplete."); err != nil {
		return Result{}, err
	}

	var (
		g                   errgroup.Group
		isAdmin, exists     bool
		adminErr, existsErr error
	)

	g.Go(func() error {
		isAdmin, adminErr = s.verifier.AuthorizeAdmin(ctx, req.AdminUsername, req.AdminPassword)
		return adminErr
	})
	g.Go(func() error {
		exists, existsErr = s.store.Exists(ctx, req.Username)
		return existsErr
	})

	_ = g.Wait()

	if err := adminGate(isAdmin, adminErr); err != nil {
		return Result{}, err
	}

	if existsErr != nil {
		return Result{}, apperr.Wrap(existsErr)
	}

	if !exists {
		return Result{}, apperr.IncorrectCredentials()
	}

	if err := s.store.Delete(ctx, req.Username); err != nil {
		return Result{}, s.mutationErr(err)
	}

	s.log.InfoContext(ctx, "user deleted", "username", req.Username, "by", req.AdminUsername)

	return Result{Key: KeyUserDeleted, Message: "The user was successfully deleted."}, nil
}

func adminGate(isAdmin bool, err error) error {
	if err != nil {
		return err
	}

	if !isAdmin {
		return apperr.AccessRights()
	}

	return nil
}

// mutationErr maps a row that disappeared between check and write to the
// same non-specific error as an unknown user.
func (s *Service) mutationErr(err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return apperr.IncorrectCredentials()
	}
	return apperr.Wrap(err)
}

func (s *Service) require(req any, message string) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	e := apperr.Incomplete(message)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		e.Data = map[string]any{"fields": fields}
	}

	return e
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})

	return v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
