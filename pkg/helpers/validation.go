package helpers

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps go-playground validator with domain rules
type CustomValidator struct {
	validate *validator.Validate
}

// NewCustomValidator creates a new validator with riddle-service rules
func NewCustomValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("account_address", validateAccountAddress)
	v.RegisterValidation("difficulty", validateDifficulty)
	v.RegisterValidation("commitment", validateCommitment)

	return &CustomValidator{validate: v}
}

// Validate validates a struct
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}

var (
	accountAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	commitmentRegex     = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// validateAccountAddress validates the externally-supplied account identity key
func validateAccountAddress(fl validator.FieldLevel) bool {
	return accountAddressRegex.MatchString(fl.Field().String())
}

// validateDifficulty validates a riddle difficulty class name
func validateDifficulty(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "easy", "medium", "hard", "legendary":
		return true
	}
	return false
}

// validateCommitment validates a keccak-256 answer commitment in lowercase hex
func validateCommitment(fl validator.FieldLevel) bool {
	return commitmentRegex.MatchString(fl.Field().String())
}
