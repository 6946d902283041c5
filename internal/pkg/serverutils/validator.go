package serverutils

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	zipCodePattern = regexp.MustCompile(`^\d{5}-\d{3}$`)
)

// Validator returns the shared instance with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("zipcode", validateZipCode)
		_ = v.RegisterValidation("notpast", validateNotPast)
		validate = v
	})
	return validate
}

// fieldName reports json names for bodies and query names for query structs.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "query"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

func ValidateRequest(req interface{}) error {
	return Validator().Struct(req)
}

func validateZipCode(fl validator.FieldLevel) bool {
	return zipCodePattern.MatchString(fl.Field().String())
}

// validateNotPast accepts any instant from the start of the current day on.
func validateNotPast(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !t.Before(startOfDay)
}

// ValidationDetails flattens validator errors into field -> rule.
func ValidationDetails(errs validator.ValidationErrors) map[string]interface{} {
	details := make(map[string]interface{}, len(errs))
	for _, fe := range errs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return details
}
