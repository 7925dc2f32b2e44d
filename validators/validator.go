package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/go-playground/validator/v10"
)

// CustomValidator adapts go-playground/validator to echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a validator with the application's custom tags.
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return models.UsernamePattern.MatchString(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// Message renders the first field error of err in a readable form.
func Message(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err.Error()
	}
	fe := errs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("the %s field is required", field)
	case "email":
		return fmt.Sprintf("the %s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("the %s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("the %s may not be greater than %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("the %s must be %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("the %s must be one of: %s", field, fe.Param())
	case "username":
		return fmt.Sprintf("the %s may only contain letters, numbers and underscores (3 to 30 characters)", field)
	case "e164":
		return fmt.Sprintf("the %s must be a phone number in international format", field)
	case "datetime":
		return fmt.Sprintf("the %s must be a date in YYYY-MM-DD format", field)
	case "numeric":
		return fmt.Sprintf("the %s must be numeric", field)
	}
	return fmt.Sprintf("the %s is invalid", field)
}
