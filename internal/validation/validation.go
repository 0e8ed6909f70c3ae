// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package validation wraps validator/v10 with the custom tags used by request payloads
// and converts failures into field keyed apierror values.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/canonical/care-service/internal/apierror"
	"github.com/canonical/care-service/internal/types"
)

var (
	phoneRegex         = regexp.MustCompile(`^(?:\+234|0)[789]\d{9}$`)
	bloodPressureRegex = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)
	acronymRegex       = regexp.MustCompile(`^[A-Za-z0-9]{2,15}$`)
)

// DateLayout is the wire format of calendar dates such as birth dates
const DateLayout = "2006-01-02"

var messages = map[string]string{
	"required":       "This field is required.",
	"email":          "Enter a valid email address.",
	"min":            "Ensure this field has at least %s characters.",
	"max":            "Ensure this field has no more than %s characters.",
	"eqfield":        "Passwords do not match.",
	"ng_phone":       "Phone number must be entered in the format: '+2348012345678' or '08012345678'.",
	"blood_pressure": "Blood pressure must be in the format '120/80'.",
	"acronym":        "Acronym must be between 2 and 15 letters or digits.",
	"caregiver_type": "Select a valid caregiver type.",
	"marital_status": "Select a valid marital status.",
	"gender":         "Select a valid gender.",
	"blood_group":    "Select a valid blood group.",
	"genotype":       "Select a valid genotype.",
	"not_future":     "Enter a valid date in the format YYYY-MM-DD, not in the future.",
	"uuid":           "Must be a valid UUID.",
	"oneof":          "Must be one of: %s.",
	"gte":            "Ensure this value is greater than or equal to %s.",
	"lte":            "Ensure this value is less than or equal to %s.",
}

type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

func NewValidator() *Validator {
	val := new(Validator)
	val.now = time.Now
	val.v = validator.New(validator.WithRequiredStructEnabled())

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	val.mustRegister("ng_phone", regexValidator(phoneRegex))
	val.mustRegister("blood_pressure", regexValidator(bloodPressureRegex))
	val.mustRegister("acronym", regexValidator(acronymRegex))
	val.mustRegister("caregiver_type", func(fl validator.FieldLevel) bool {
		return types.IsCaregiverType(fl.Field().String())
	})
	val.mustRegister("marital_status", choiceValidator(types.MaritalStatuses))
	val.mustRegister("gender", choiceValidator(types.Genders))
	val.mustRegister("blood_group", choiceValidator(types.BloodGroups))
	val.mustRegister("genotype", choiceValidator(types.Genotypes))
	val.mustRegister("not_future", val.notFuture)

	return val
}

func (val *Validator) mustRegister(tag string, fn validator.Func) {
	if err := val.v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register validation %s: %v", tag, err))
	}
}

// Struct validates s, failures are returned as an apierror of the validation kind
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return apierror.ErrValidation.Wrap(err)
	}

	return apierror.ErrValidation.WithFields(Fields(vErrs))
}

// Fields converts validator errors into messages keyed by the json field name
func Fields(errs validator.ValidationErrors) map[string][]string {
	ret := make(map[string][]string, len(errs))

	for _, fe := range errs {
		ret[fe.Field()] = append(ret[fe.Field()], message(fe))
	}

	return ret
}

func message(fe validator.FieldError) string {
	m, ok := messages[fe.Tag()]
	if !ok {
		return "Invalid value."
	}

	if strings.Contains(m, "%s") {
		return fmt.Sprintf(m, fe.Param())
	}

	return m
}

// FieldError builds a single field validation failure
func FieldError(field, msg string) error {
	return apierror.ErrValidation.WithFields(map[string][]string{field: {msg}})
}

func (val *Validator) notFuture(fl validator.FieldLevel) bool {
	f := fl.Field()

	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return true
		}
		f = f.Elem()
	}

	if f.Kind() == reflect.String {
		d, err := time.Parse(DateLayout, f.String())
		return err == nil && !d.After(val.now())
	}

	t, ok := f.Interface().(time.Time)
	if !ok {
		return false
	}

	return !t.After(val.now())
}

func regexValidator(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func choiceValidator(choices []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(choices, fl.Field().String())
	}
}
