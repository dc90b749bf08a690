// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package validation wraps a singleton go-playground validator.
//
// Field names in messages use the json tag, so a failure reads the way the
// client wrote the payload:
//
//	type CreateProductRequest struct {
//	    Title string  `json:"title" validate:"required,max=200"`
//	    Price float64 `json:"price" validate:"gt=0"`
//	}
//
//	if err := validation.Validate(&req); err != nil {
//	    return err // *apierr.Error, kind ValidationError
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/stox-gateway/internal/apierr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	Fields []FieldError
}

func (e *RequestValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})

		// Registration only fails for an empty tag or nil func.
		_ = validate.RegisterValidation("idempotency_key", func(fl validator.FieldLevel) bool {
			return idempotencyKeyPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct runs struct validation and returns the collected field
// errors, or nil.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translateError(fe),
		}
	}
	return &RequestValidationError{Fields: out}
}

// Validate is ValidateStruct mapped into the gateway error taxonomy.
func Validate(s any) error {
	if verr := ValidateStruct(s); verr != nil {
		e := apierr.Validation(verr.Error())
		e.Err = verr
		return e
	}
	return nil
}

// StrongPassword reports whether p mixes upper and lower case letters,
// digits and punctuation. Length is checked by the min tag.
func StrongPassword(p string) bool {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// ValidIdempotencyKey reports whether key is acceptable as an Idempotency-Key.
func ValidIdempotencyKey(key string) bool {
	return idempotencyKeyPattern.MatchString(key)
}

var messageTemplates = map[string]string{
	"required":          "%s is required",
	"email":             "%s must be a valid email address",
	"url":               "%s must be a valid URL",
	"uuid":              "%s must be a valid UUID",
	"idempotency_key":   "%s must be 1-128 characters of letters, digits, '-' or '_'",
	"password_strength": "%s must contain an uppercase letter, a lowercase letter, a digit and a special character",
}

var paramTemplates = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if t, ok := messageTemplates[tag]; ok {
		return fmt.Sprintf(t, field)
	}
	if t, ok := paramTemplates[tag]; ok {
		return fmt.Sprintf(t, field, param)
	}

	unit := ""
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = " items"
	}
	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}
