package util

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Validate exposes the validator in the util package.
var Validate *validator.Validate

var eventIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func init() {
	Validate = validator.New()
	// eventid: identifiers that are safe to place in a URL path segment or a file name.
	_ = Validate.RegisterValidation("eventid", func(fl validator.FieldLevel) bool {
		return eventIDPattern.MatchString(fl.Field().String())
	})
}

// ValidEventID reports whether `id` can be used as an event identifier.
func ValidEventID(id string) bool {
	return Validate.Var(id, "required,eventid") == nil
}
