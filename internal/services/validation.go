package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
)

// validateStruct runs the struct's validate tags and converts failures into
// a domain.ValidationError keyed by JSON field name.
func validateStruct(v interface{}) error {
	err := models.Validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ValidationError{Msg: "invalid input", Err: err}
	}

	ve := domain.ValidationError{Messages: map[string]string{}, Err: err}
	for _, fe := range verrs {
		name := fe.Namespace()
		if name == "" {
			name = fe.Field()
		}
		name = trimRootNamespace(name)
		ve.Fields = append(ve.Fields, name)
		ve.Messages[name] = describeFieldError(name, fe)
	}
	ve.Msg = ve.Messages[ve.Fields[0]]
	return ve
}

// trimRootNamespace drops the struct name validator puts in front of
// namespaced fields, e.g. "Settings.refunds.over_48_hours".
func trimRootNamespace(ns string) string {
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func describeFieldError(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", name)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}
