package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"book_market/internal/common"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct turns validator failures into ErrValidation with a
// readable message naming the first offending field.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", common.ErrValidation, fe.Field())
	case "email":
		return fmt.Errorf("%w: %s must be a valid email address", common.ErrValidation, fe.Field())
	case "gte", "min":
		return fmt.Errorf("%w: %s must be at least %s", common.ErrValidation, fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Errorf("%w: %s must be at most %s", common.ErrValidation, fe.Field(), fe.Param())
	}
	return fmt.Errorf("%w: %s is invalid", common.ErrValidation, fe.Field())
}

func parseID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid %s id format: %w", what, common.ErrBadRequest)
	}
	return nil
}
