package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/geocoder89/roadwatch/internal/apperr"
	"github.com/geocoder89/roadwatch/internal/domain/user"
)

func newTestService(store Store) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, testPasswords, log)
}

func seededStore() *fakeStore {
	store := newFakeStore()
	store.add("admin", "secret", user.RoleAdmin, nil)
	store.add("inspector", "secret", user.RoleInspector, nil)
	return store
}

func bobRegistration() user.RegisterRequest {
	return user.RegisterRequest{
		Username:      "bob",
		Password:      "x",
		FirstName:     "B",
		LastName:      "C",
		RoleName:      "inspector",
		AdminUsername: "admin",
		AdminPassword: "secret",
	}
}

func TestService_IncompleteInputBeforeStoreAccess(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(s *Service) error
	}{
		{name: "login empty", call: func(s *Service) error {
			_, err := s.Login(ctx, user.LoginRequest{})
			return err
		}},
		{name: "login no password", call: func(s *Service) error {
			_, err := s.Login(ctx, user.LoginRequest{Username: "bob"})
			return err
		}},
		{name: "register empty", call: func(s *Service) error {
			_, err := s.Register(ctx, user.RegisterRequest{})
			return err
		}},
		{name: "register no admin password", call: func(s *Service) error {
			req := bobRegistration()
			req.AdminPassword = ""
			_, err := s.Register(ctx, req)
			return err
		}},
		{name: "register no role", call: func(s *Service) error {
			req := bobRegistration()
			req.RoleName = ""
			_, err := s.Register(ctx, req)
			return err
		}},
		{name: "change password no new password", call: func(s *Service) error {
			_, err := s.ChangePassword(ctx, user.ChangePasswordRequest{Username: "bob", Password: "x"})
			return err
		}},
		{name: "change password empty", call: func(s *Service) error {
			_, err := s.ChangePassword(ctx, user.ChangePasswordRequest{})
			return err
		}},
		{name: "edit no mutable field", call: func(s *Service) error {
			_, err := s.Edit(ctx, user.EditRequest{Username: "bob", AdminUsername: "admin", AdminPassword: "secret"})
			return err
		}},
		{name: "edit no admin", call: func(s *Service) error {
			_, err := s.Edit(ctx, user.EditRequest{Username: "bob", FirstName: "B"})
			return err
		}},
		{name: "edit no target", call: func(s *Service) error {
			_, err := s.Edit(ctx, user.EditRequest{FirstName: "B", AdminUsername: "admin", AdminPassword: "secret"})
			return err
		}},
		{name: "delete no target", call: func(s *Service) error {
			_, err := s.Delete(ctx, user.DeleteRequest{AdminUsername: "admin", AdminPassword: "secret"})
			return err
		}},
		{name: "delete no admin username", call: func(s *Service) error {
			_, err := s.Delete(ctx, user.DeleteRequest{Username: "bob", AdminPassword: "secret"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			err := tt.call(newTestService(store))

			if apperr.KindOf(err) != apperr.KindIncompleteInput {
				t.Fatalf("expected incomplete input, got %v", err)
			}
			if n := store.calls.Load(); n != 0 {
				t.Fatalf("expected no store access, got %d calls", n)
			}
		})
	}
}

func TestService_IncompleteInputListsFields(t *testing.T) {
	req := bobRegistration()
	req.FirstName = ""
	req.AdminPassword = ""

	_, err := newTestService(seededStore()).Register(context.Background(), req)

	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	if e.Message != "Registration data incomplete." {
		t.Fatalf("unexpected message %q", e.Message)
	}

	fields, _ := e.Data["fields"].([]string)
	want := map[string]bool{"firstName": true, "adminPassword": true}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for _, f := range fields {
		if !want[f] {
			t.Fatalf("unexpected field %q in %v", f, fields)
		}
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	svc := newTestService(store)

	res, err := svc.Register(ctx, bobRegistration())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Key != KeyUserCreated {
		t.Fatalf("key = %q, want %q", res.Key, KeyUserCreated)
	}

	bob, ok := store.get("bob")
	if !ok {
		t.Fatalf("bob was not stored")
	}
	if bob.PasswordHash == "x" {
		t.Fatalf("password stored in plaintext")
	}
	if ok, err := testPasswords.Verify("x", bob.PasswordHash); err != nil || !ok {
		t.Fatalf("stored hash does not verify: %v, %v", ok, err)
	}
	if bob.RoleName != user.RoleInspector {
		t.Fatalf("role = %q", bob.RoleName)
	}

	_, err = svc.Register(ctx, bobRegistration())
	if !errors.Is(err, apperr.ErrUserExists) {
		t.Fatalf("second register: expected ErrUserExists, got %v", err)
	}
}

func TestService_Register_RaceSurfacesStorageFailure(t *testing.T) {
	store := seededStore()
	store.createFn = func(context.Context, user.NewUser) error {
		return errUniqueViolation
	}

	_, err := newTestService(store).Register(context.Background(), bobRegistration())

	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if !errors.Is(err, errUniqueViolation) {
		t.Fatalf("expected the driver error to be wrapped, got %v", err)
	}
}

func TestService_Register_Gate(t *testing.T) {
	tests := []struct {
		name          string
		adminUsername string
		adminPassword string
		wantKind      apperr.Kind
	}{
		{name: "non admin", adminUsername: "inspector", adminPassword: "secret", wantKind: apperr.KindAccessRights},
		{name: "wrong admin password", adminUsername: "admin", adminPassword: "nope", wantKind: apperr.KindIncorrectCredentials},
		{name: "unknown admin", adminUsername: "root", adminPassword: "secret", wantKind: apperr.KindIncorrectCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			req := bobRegistration()
			req.AdminUsername = tt.adminUsername
			req.AdminPassword = tt.adminPassword

			_, err := newTestService(store).Register(context.Background(), req)

			if apperr.KindOf(err) != tt.wantKind {
				t.Fatalf("kind = %v, want %v (err=%v)", apperr.KindOf(err), tt.wantKind, err)
			}
			if _, ok := store.get("bob"); ok {
				t.Fatalf("user must not be created")
			}
		})
	}
}

func TestService_Register_AccessRightsBeforeExistence(t *testing.T) {
	req := bobRegistration()
	req.Username = "admin"
	req.AdminUsername = "inspector"

	_, err := newTestService(seededStore()).Register(context.Background(), req)

	if apperr.KindOf(err) != apperr.KindAccessRights {
		t.Fatalf("expected access rights error, got %v", err)
	}
}

func TestService_Register_DeactivatedAdmin(t *testing.T) {
	until := time.Now().Add(time.Hour)
	store := newFakeStore()
	store.add("admin", "secret", user.RoleAdmin, &until)

	_, err := newTestService(store).Register(context.Background(), bobRegistration())

	if apperr.KindOf(err) != apperr.KindAccountDeactivated {
		t.Fatalf("expected account deactivated, got %v", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	svc := newTestService(store)

	res, err := svc.ChangePassword(ctx, user.ChangePasswordRequest{Username: "inspector", Password: "secret", NewPassword: "fresh"})
	if err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if res.Key != KeyPasswordChanged {
		t.Fatalf("key = %q, want %q", res.Key, KeyPasswordChanged)
	}

	if ok, _ := svc.Verifier().Authenticate(ctx, "inspector", "fresh"); !ok {
		t.Fatalf("new password should authenticate")
	}
	if ok, _ := svc.Verifier().Authenticate(ctx, "inspector", "secret"); ok {
		t.Fatalf("old password should no longer authenticate")
	}
}

func TestService_ChangePassword_SamePasswordRejected(t *testing.T) {
	store := seededStore()

	_, err := newTestService(store).ChangePassword(context.Background(), user.ChangePasswordRequest{Username: "inspector", Password: "secret", NewPassword: "secret"})

	if apperr.KindOf(err) != apperr.KindPasswordReuse {
		t.Fatalf("expected password reuse rejection, got %v", err)
	}
	if apperr.KindOf(err) == apperr.KindIncompleteInput {
		t.Fatalf("reuse must be distinct from incomplete input")
	}
}

func TestService_ChangePassword_WrongCurrentPassword(t *testing.T) {
	store := seededStore()
	before, _ := store.get("inspector")

	_, err := newTestService(store).ChangePassword(context.Background(), user.ChangePasswordRequest{Username: "inspector", Password: "nope", NewPassword: "fresh"})

	if !errors.Is(err, apperr.ErrIncorrect) {
		t.Fatalf("expected incorrect credentials, got %v", err)
	}

	after, _ := store.get("inspector")
	if before.PasswordHash != after.PasswordHash {
		t.Fatalf("hash must be unchanged")
	}
}

func TestService_Edit(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	svc := newTestService(store)

	res, err := svc.Edit(ctx, user.EditRequest{
		Username:         "inspector",
		FirstName:        "Ina",
		RoleName:         user.RoleAdmin,
		DeactivatedUntil: "2099-01-01T00:00:00Z",
		AdminUsername:    "admin",
		AdminPassword:    "secret",
	})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if res.Key != KeyUserEdited {
		t.Fatalf("key = %q, want %q", res.Key, KeyUserEdited)
	}

	u, _ := store.get("inspector")
	if u.FirstName != "Ina" || u.LastName != "Last" {
		t.Fatalf("names = %q %q", u.FirstName, u.LastName)
	}
	if u.RoleName != user.RoleAdmin {
		t.Fatalf("role = %q", u.RoleName)
	}
	want := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	if u.DeactivatedUntil == nil || !u.DeactivatedUntil.Equal(want) {
		t.Fatalf("deactivatedUntil = %v, want %v", u.DeactivatedUntil, want)
	}

	_, err = svc.Verifier().Authenticate(ctx, "inspector", "secret")
	if apperr.KindOf(err) != apperr.KindAccountDeactivated {
		t.Fatalf("expected edited user to be deactivated, got %v", err)
	}
}

func TestService_Edit_UnparsableDateClearsDeactivation(t *testing.T) {
	until := time.Now().Add(time.Hour)
	store := seededStore()
	store.add("bob", "x", user.RoleInspector, &until)

	_, err := newTestService(store).Edit(context.Background(), user.EditRequest{
		Username:         "bob",
		DeactivatedUntil: "not-a-date",
		AdminUsername:    "admin",
		AdminPassword:    "secret",
	})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}

	bob, _ := store.get("bob")
	if bob.DeactivatedUntil != nil {
		t.Fatalf("expected deactivation to be cleared, got %v", *bob.DeactivatedUntil)
	}
}

func TestService_Edit_Password(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	svc := newTestService(store)

	_, err := svc.Edit(ctx, user.EditRequest{Username: "inspector", Password: "reset", AdminUsername: "admin", AdminPassword: "secret"})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}

	if ok, _ := svc.Verifier().Authenticate(ctx, "inspector", "reset"); !ok {
		t.Fatalf("reset password should authenticate")
	}
}

func TestService_Edit_UnknownTarget(t *testing.T) {
	_, err := newTestService(seededStore()).Edit(context.Background(), user.EditRequest{Username: "ghost", FirstName: "G", AdminUsername: "admin", AdminPassword: "secret"})

	if !errors.Is(err, apperr.ErrIncorrect) {
		t.Fatalf("expected incorrect credentials, got %v", err)
	}
}

func TestService_Edit_NonAdmin(t *testing.T) {
	_, err := newTestService(seededStore()).Edit(context.Background(), user.EditRequest{Username: "admin", FirstName: "G", AdminUsername: "inspector", AdminPassword: "secret"})

	if !errors.Is(err, apperr.ErrAccess) {
		t.Fatalf("expected access rights, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	svc := newTestService(store)
	req := user.DeleteRequest{Username: "inspector", AdminUsername: "admin", AdminPassword: "secret"}

	res, err := svc.Delete(ctx, req)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if res.Key != KeyUserDeleted {
		t.Fatalf("key = %q, want %q", res.Key, KeyUserDeleted)
	}
	if _, ok := store.get("inspector"); ok {
		t.Fatalf("user should be gone")
	}

	_, err = svc.Delete(ctx, req)
	if !errors.Is(err, apperr.ErrIncorrect) {
		t.Fatalf("second delete: expected incorrect credentials, got %v", err)
	}
}

func TestService_Delete_NonAdmin(t *testing.T) {
	store := seededStore()

	_, err := newTestService(store).Delete(context.Background(), user.DeleteRequest{Username: "admin", AdminUsername: "inspector", AdminPassword: "secret"})

	if !errors.Is(err, apperr.ErrAccess) {
		t.Fatalf("expected access rights, got %v", err)
	}
	if _, ok := store.get("admin"); !ok {
		t.Fatalf("admin must not be deleted")
	}
}

func TestService_Login(t *testing.T) {
	res, err := newTestService(seededStore()).Login(context.Background(), user.LoginRequest{Username: "inspector", Password: "secret"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.Key != KeyUserRequested {
		t.Fatalf("key = %q, want %q", res.Key, KeyUserRequested)
	}

	profile, ok := res.Data.(user.Profile)
	if !ok {
		t.Fatalf("data is %T, want user.Profile", res.Data)
	}
	if profile.Username != "inspector" || profile.RoleName != user.RoleInspector {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestService_Login_WrongPassword(t *testing.T) {
	_, err := newTestService(seededStore()).Login(context.Background(), user.LoginRequest{Username: "inspector", Password: "nope"})

	if !errors.Is(err, apperr.ErrIncorrect) {
		t.Fatalf("expected incorrect credentials, got %v", err)
	}
}

func TestService_StorageFailurePropagates(t *testing.T) {
	store := seededStore()
	store.failWith = errors.New("connection reset by peer")

	_, err := newTestService(store).Delete(context.Background(), user.DeleteRequest{Username: "inspector", AdminUsername: "admin", AdminPassword: "secret"})

	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("expected storage failure, got %v", err)
	}
}
