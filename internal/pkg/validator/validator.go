package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

func registerCustomValidations() {
	validate.RegisterValidation("decision", oneOf("APPROVED", "REJECTED"))
	validate.RegisterValidation("enrollment_status", oneOf("ACTIVE", "COMPLETED", "WITHDRAWN", ""))
	validate.RegisterValidation("redemption_status", oneOf("PENDING", "APPROVED", "REJECTED", ""))
	validate.RegisterValidation("iso_date", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if len(v) != len("2006-01-02") {
			return false
		}
		return v[4] == '-' && v[7] == '-'
	})

	// decimal.Decimal is a struct, so numeric tags cannot reach it
	validate.RegisterValidation("dec_gt0", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.IsPositive()
	})
	validate.RegisterValidation("dec_gte0", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && !d.IsNegative()
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "decision":
			errors[field] = "Invalid decision. Must be: APPROVED or REJECTED"
		case "enrollment_status":
			errors[field] = "Invalid status. Must be: ACTIVE, COMPLETED, or WITHDRAWN"
		case "redemption_status":
			errors[field] = "Invalid status. Must be: PENDING, APPROVED, or REJECTED"
		case "iso_date":
			errors[field] = "Invalid date. Use YYYY-MM-DD"
		case "dec_gt0":
			errors[field] = "Value must be greater than 0"
		case "dec_gte0":
			errors[field] = "Value must not be negative"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
