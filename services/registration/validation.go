package registration

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"snaplink/models"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	})
	// Report JSON names so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fields returns a step validator checking only the named draft fields.
func fields(names ...string) func(models.RegistrationDraft) error {
	return func(d models.RegistrationDraft) error {
		if err := validate.StructPartial(d, names...); err != nil {
			return describe(err)
		}
		return nil
	}
}

// describe turns the first validator failure into a user-facing message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		if fe.StructField() == "AcceptedTerms" {
			return errors.New("the terms of service must be accepted")
		}
		return fmt.Errorf("%s is required", field)
	case "email":
		return fmt.Errorf("%s must be a valid email address", field)
	case "phone":
		return fmt.Errorf("%s must be a phone number of 9 to 15 digits", field)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	case "gte", "lte":
		return fmt.Errorf("%s is out of range", field)
	}
	return fmt.Errorf("%s is invalid", field)
}
