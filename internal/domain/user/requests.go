package user

// Request bodies for the account endpoints. Required fields are checked by
// the account service, not at bind time, so every operation reports missing
// input with its own message.

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username      string `json:"username" validate:"required"`
	Password      string `json:"password" validate:"required"`
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	RoleName      string `json:"roleName" validate:"required"`
	AdminUsername string `json:"adminUsername" validate:"required"`
	AdminPassword string `json:"adminPassword" validate:"required"`
}

type ChangePasswordRequest struct {
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// EditRequest needs at least one of the mutable fields besides the target and
// admin credentials.
type EditRequest struct {
	Username         string `json:"username" validate:"required"`
	Password         string `json:"password" validate:"required_without_all=FirstName LastName RoleName DeactivatedUntil"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	RoleName         string `json:"roleName"`
	DeactivatedUntil string `json:"deactivatedUntil"`
	AdminUsername    string `json:"adminUsername" validate:"required"`
	AdminPassword    string `json:"adminPassword" validate:"required"`
}

type DeleteRequest struct {
	Username      string `json:"username" validate:"required"`
	AdminUsername string `json:"adminUsername" validate:"required"`
	AdminPassword string `json:"adminPassword" validate:"required"`
}
