// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package validation validates API request structs with go-playground/validator
// and reports failures per field, by JSON name.
//
// The custom "timestamp" tag accepts RFC 3339 or RFC 2822 date strings;
// ParseTimestamp converts them.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule on one request field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors is every rule a request failed, in struct field order.
type Errors []FieldError

// Error reads as the lone message, or "field: message" pairs joined by "; ".
func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return "validation failed"
	case 1:
		return e[0].Message
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// GetValidator returns the shared validator, registering the JSON tag-name
// function and the "timestamp" rule on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		if err := validate.RegisterValidation("timestamp", validateTimestamp); err != nil {
			panic(fmt.Sprintf("register timestamp validator: %v", err))
		}
	})
	return validate
}

// ValidateStruct returns nil when s passes every rule.
func ValidateStruct(s interface{}) Errors {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{{Field: "request", Rule: "invalid", Message: err.Error()}}
	}

	out := make(Errors, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: message(fe)}
	}
	return out
}

// ruleMessages take the field name then the rule parameter.
var ruleMessages = map[string]string{
	"required":  "%[1]s is required",
	"timestamp": "%[1]s must be an RFC 3339 or RFC 2822 timestamp",
	"oneof":     "%[1]s must be one of: %[2]s",
	"gte":       "%[1]s must be greater than or equal to %[2]s",
	"lte":       "%[1]s must be less than or equal to %[2]s",
	"gt":        "%[1]s must be greater than %[2]s",
	"lt":        "%[1]s must be less than %[2]s",
}

func message(fe validator.FieldError) string {
	field, rule, param := fe.Field(), fe.Tag(), fe.Param()
	if tmpl, ok := ruleMessages[rule]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch rule {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	}
	return fmt.Sprintf("%s failed %s validation", field, rule)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	default:
		return name
	}
}

func validateTimestamp(fl validator.FieldLevel) bool {
	_, err := ParseTimestamp(fl.Field().String())
	return err == nil
}

// ParseTimestamp accepts RFC 3339 (with optional fractional seconds) or
// RFC 2822 and returns the instant in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := mail.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: want RFC 3339 or RFC 2822", s)
	}
	return t.UTC(), nil
}
