package validation

import (
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const MinPasswordLength = 8

func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("strongpwd", strongPassword)
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// strongPassword wants at least eight runes with an upper-case letter and a digit.
func strongPassword(fl validator.FieldLevel) bool {
	pwd := fl.Field().String()
	if utf8.RuneCountInString(pwd) < MinPasswordLength {
		return false
	}
	var hasUpper, hasDigit bool
	for _, r := range pwd {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	return hasUpper && hasDigit
}
