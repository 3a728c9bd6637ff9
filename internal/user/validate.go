package user

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"videotube-api/internal/apperr"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.-]{3,30}$`)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

const passwordRule = "required,min=8,bcryptlen"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRegex.MatchString(fl.Field().String())
		})
		// max counts runes; bcrypt limits bytes.
		_ = validate.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= MaxPasswordBytes
		})
	})
	return validate
}

type RegisterInput struct {
	FullName       string `validate:"required,max=100"`
	Email          string `validate:"required,email"`
	Username       string `validate:"required,username"`
	Password       string `validate:"required,min=8,bcryptlen"`
	AvatarPath     string
	CoverImagePath string
}

// Normalize trims every text field and case-folds username and email.
func (in *RegisterInput) Normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.AvatarPath = strings.TrimSpace(in.AvatarPath)
	in.CoverImagePath = strings.TrimSpace(in.CoverImagePath)
}

// ValidateRegistration is the explicit field validation step run before a
// user is persisted. The input is expected to be normalized.
func ValidateRegistration(in RegisterInput) error {
	if in.FullName == "" || in.Email == "" || in.Username == "" || strings.TrimSpace(in.Password) == "" {
		return apperr.Validation("all fields are required")
	}
	return structError(validatorInstance().Struct(in))
}

// ValidatePassword applies the registration password rule to plain.
func ValidatePassword(plain string) error {
	if strings.TrimSpace(plain) == "" {
		return apperr.Validation("password is required")
	}
	if err := validatorInstance().Var(plain, passwordRule); err != nil {
		return apperr.Validation(passwordMessage)
	}
	return nil
}

type accountInput struct {
	FullName string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
}

func validateAccount(fullName, email string) error {
	if fullName == "" || email == "" {
		return apperr.Validation("all fields are required")
	}
	return structError(validatorInstance().Struct(accountInput{FullName: fullName, Email: email}))
}

const passwordMessage = "password must be at least 8 characters and at most 72 bytes"

func structError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Internal("failed to validate input", err)
	}

	switch field := fieldErrs[0]; field.Field() {
	case "Email":
		return apperr.Validation("email format is invalid")
	case "Username":
		return apperr.Validation("username must be 3-30 characters of a-z, 0-9, '_', '.', '-'")
	case "Password":
		return apperr.Validation(passwordMessage)
	case "FullName":
		return apperr.Validation("full name is too long")
	default:
		return apperr.Validation(strings.ToLower(field.Field()) + " is invalid")
	}
}
