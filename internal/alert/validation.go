package alert

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alertrix/alertrix/internal/api/models"
	"github.com/alertrix/alertrix/internal/weather"
)

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})

	mustRegister(v, "weather_parameter", func(fl validator.FieldLevel) bool {
		return weather.Parameter(fl.Field().String()).Valid()
	})
	mustRegister(v, "threshold_operator", func(fl validator.FieldLevel) bool {
		return Operator(fl.Field().String()).Valid()
	})
	mustRegister(v, "finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validator: %v", tag, err))
	}
}

// validateStruct runs the tag rules on a request and converts failures to
// API field errors.
func validateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Errors: []models.FieldError{{Field: "body", Message: err.Error(), Code: "INVALID"}}}
	}

	fieldErrors := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrors = append(fieldErrors, toFieldError(fe))
	}
	return &ValidationError{Errors: fieldErrors}
}

func toFieldError(fe validator.FieldError) models.FieldError {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	out := models.FieldError{Field: field}
	switch fe.Tag() {
	case "required":
		out.Message, out.Code = "is required", "REQUIRED"
	case "min":
		out.Message, out.Code = "must be at least "+fe.Param()+" characters", "TOO_SHORT"
	case "max":
		if fe.Kind() == reflect.Slice {
			out.Message, out.Code = fmt.Sprintf("Maximum of %d email addresses allowed", MaxRecipients), "TOO_MANY"
		} else {
			out.Message, out.Code = "must be at most "+fe.Param()+" characters", "TOO_LONG"
		}
	case "gte", "lte":
		out.Message, out.Code = rangeMessage(field), "OUT_OF_RANGE"
	case "email":
		out.Message, out.Code = "must be a valid email address", "INVALID_FORMAT"
	case "oneof":
		out.Message, out.Code = "must be one of: "+fe.Param(), "INVALID_VALUE"
	case "weather_parameter":
		out.Message, out.Code = "must be a supported weather parameter", "INVALID_VALUE"
	case "threshold_operator":
		out.Message, out.Code = "must be one of >, <, >=, <=, =, !=", "INVALID_VALUE"
	case "finite":
		out.Message, out.Code = "must be a finite number", "INVALID_VALUE"
	default:
		out.Message, out.Code = "is invalid", "INVALID"
	}
	return out
}

func rangeMessage(field string) string {
	switch {
	case strings.HasSuffix(field, "lat"):
		return "must be between -90 and 90"
	case strings.HasSuffix(field, "lon"):
		return "must be between -180 and 180"
	default:
		return "is out of range"
	}
}

func normalizeEmails(emails []string) []string {
	if emails == nil {
		return nil
	}
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		out = append(out, strings.TrimSpace(e))
	}
	return out
}
