package validation

import (
	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/stellar"
)

// RegisterRequest mirrors the fields needed for registration validation.
type RegisterRequest struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// ValidateRegisterRequest validates the fields of a registration request.
func ValidateRegisterRequest(req RegisterRequest) []FieldError {
	var errs fieldErrors

	errs.email("email", req.Email, true)
	errs.text("name", req.Name, true, 100)

	switch {
	case req.Password == "":
		errs.add("password", "password is required")
	case len(req.Password) < 8:
		errs.add("password", "password must be at least 8 characters")
	case len(req.Password) > 72:
		errs.add("password", "password must be at most 72 bytes")
	}

	if req.Role != "" {
		errs.oneOf("role", req.Role, []string{auth.RoleFan, auth.RoleArtist})
	}

	return errs
}

// ValidateLoginRequest checks that credentials were supplied.
func ValidateLoginRequest(email, password string) []FieldError {
	var errs fieldErrors
	if email == "" {
		errs.add("email", "email is required")
	}
	if password == "" {
		errs.add("password", "password is required")
	}
	return errs
}

// UpdateAccountRequest mirrors the editable account fields. Nil fields are not validated.
type UpdateAccountRequest struct {
	Name           *string
	StellarAddress *string
}

// ValidateUpdateAccountRequest validates only non-nil fields. An empty Stellar
// address is allowed and clears it.
func ValidateUpdateAccountRequest(req UpdateAccountRequest) []FieldError {
	var errs fieldErrors

	errs.optionalText("name", req.Name, true, 100)
	if req.StellarAddress != nil && *req.StellarAddress != "" && !stellar.ValidAddress(*req.StellarAddress) {
		errs.add("stellarAddress", "stellarAddress must be a Stellar public key (G followed by 55 base32 characters)")
	}

	return errs
}
