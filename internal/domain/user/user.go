package user

import (
	"errors"
	"time"
)

const (
	RoleAdmin     = "admin"
	RoleInspector = "inspector"
)

type User struct {
	ID               int        `json:"id"`
	Username         string     `json:"username"`
	PasswordHash     string     `json:"-"` // never expose hash in JSON
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	RoleName         string     `json:"roleName"`
	CreatedOn        time.Time  `json:"createdOn"`
	DeactivatedUntil *time.Time `json:"deactivatedUntil"`
}

// Profile is what a successful login hands back to the client.
type Profile struct {
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	RoleName  string    `json:"roleName"`
	CreatedOn time.Time `json:"createdOn"`
}

type NewUser struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	RoleName     string
}

// Update is a partial update: nil fields are left untouched.
// SetDeactivation with a nil DeactivatedUntil clears the column.
type Update struct {
	PasswordHash     *string
	FirstName        *string
	LastName         *string
	RoleName         *string
	SetDeactivation  bool
	DeactivatedUntil *time.Time
}

func (u Update) Empty() bool {
	return u.PasswordHash == nil && u.FirstName == nil && u.LastName == nil && u.RoleName == nil && !u.SetDeactivation
}

var ErrNotFound = errors.New("user not found")
