package validator

import (
	"reflect"
	"strings"
	"sync"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// NewValidator returns the shared validator. Field names in errors use the json tag.
func NewValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateRequest validates a struct and reports the first failing field.
// Fields are checked in declaration order, so the first error is the first
// missing field of the payload.
func ValidateRequest(req interface{}) error {
	err := NewValidator().Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return ierr.WithError(err).
			WithHint("Request validation failed").
			Mark(ierr.ErrValidation)
	}

	first := validationErrors[0]
	fields := lo.Map(validationErrors, func(fe validator.FieldError, _ int) string {
		return fe.Field()
	})

	var msg string
	switch first.Tag() {
	case "required":
		msg = "missing required field: " + first.Field()
	default:
		msg = "invalid field: " + first.Field()
	}

	return ierr.NewError(msg).
		WithHintf("Field %s failed the %s check", first.Namespace(), first.Tag()).
		WithReportableDetails(map[string]interface{}{
			"field":  first.Field(),
			"tag":    first.Tag(),
			"fields": fields,
		}).
		Mark(ierr.ErrValidation)
}
