// Package validation checks request payloads before they reach the core
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request limits
const (
	MaxDeviceCodeLength = 256
	MaxFriendIDs        = 500 // Per removal request
	MaxFriendIDLength   = 64
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// VerifyRequest is the body of a device code verification
type VerifyRequest struct {
	DeviceCode string `json:"device_code" validate:"required,max=256"`
}

// RemoveFriendsRequest is the body of a bulk removal
type RemoveFriendsRequest struct {
	FriendIDs []string `json:"friendIds" validate:"required,min=1,max=500,dive,required,max=64"`
}

// ValidationError represents malformed caller input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks a request struct and reports the first violation
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fieldName(fe), Message: message(fe)}
}

// Decode reads a JSON body into dst and validates it
func Decode(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ValidationError{Field: "body", Message: "is required"}
		}
		return &ValidationError{Field: "body", Message: "must be valid JSON"}
	}
	return Validate(dst)
}

// ValidateHistoryID checks a removal history identifier
func ValidateHistoryID(id string) error {
	if err := validate.Var(id, "required,uuid"); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return &ValidationError{Field: "id", Message: message(fieldErrs[0])}
		}
		return err
	}
	return nil
}

// fieldName includes the index for errors inside slices, e.g. friendIds[2]
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
