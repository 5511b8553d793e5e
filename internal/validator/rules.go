package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/parser"
)

func registerRules(v *validator.Validate) {
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("domain", isDomain)
	_ = v.RegisterValidation("decimal", isDecimal)
}

// isDomain accepts hostnames that contain a dot and no whitespace.
func isDomain(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.ContainsAny(s, " \t\r\n/") {
		return false
	}
	s = strings.TrimSuffix(s, ".")
	i := strings.Index(s, ".")
	return i > 0 && i < len(s)-1
}

func isDecimal(fl validator.FieldLevel) bool {
	_, err := parser.ParsePrice(fl.Field().String())
	return err == nil
}

// translate converts validator errors into field errors keyed by JSON path.
func translate(err error) []entity.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []entity.FieldError{{Category: entity.CategoryInvalidValue, Path: "$", Message: err.Error()}}
	}
	out := make([]entity.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError(fe))
	}
	return out
}

func fieldError(fe validator.FieldError) entity.FieldError {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return entity.FieldError{Category: entity.CategoryMissingField, Path: path, Message: "field is required"}
	case "oneof":
		allowed := strings.Fields(fe.Param())
		return entity.FieldError{
			Category: entity.CategoryInvalidEnum,
			Path:     path,
			Message:  fmt.Sprintf("%q is not one of %s", fmt.Sprint(fe.Value()), strings.Join(allowed, ", ")),
			Allowed:  allowed,
		}
	}
	return entity.FieldError{Category: entity.CategoryInvalidValue, Path: path, Message: ruleMessage(fe)}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "domain":
		return fmt.Sprintf("%q is not a hostname with a dot", fmt.Sprint(fe.Value()))
	case "decimal":
		return fmt.Sprintf("%q is not a decimal number", fmt.Sprint(fe.Value()))
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fmt.Sprint(fe.Value()))
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	}
	return fmt.Sprintf("failed %q rule", fe.Tag())
}
