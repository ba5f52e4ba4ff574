package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"shoplive/internal/core/domain"
)

var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.:@-]{1,128}$`)

// Validator checks inbound payload structs using `validate` tags. Besides the
// stock tags it knows "userid" and "notblank".
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("userid", func(fl validator.FieldLevel) bool {
		return userIDRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{v: v}
}

// Struct validates s. Failures wrap domain.ErrInvalidPayload and name every
// offending field.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidPayload, strings.Join(msgs, "; "))
}

// UserID validates a single identity outside of a struct.
func (val *Validator) UserID(id string) error {
	if !userIDRegex.MatchString(id) {
		return fmt.Errorf("%w: invalid user id %q", domain.ErrInvalidPayload, id)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "userid":
		return field + " is not a valid user id"
	case "max":
		return fmt.Sprintf("%s is too long (max %s)", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
