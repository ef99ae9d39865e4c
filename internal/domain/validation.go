package domain

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is shared so struct metadata is cached once.
var validatorInstance = validator.New()

var labelPattern = regexp.MustCompile(`^[a-zA-Z\d\-_\s]{2,50}$`)

func init() {
	_ = validatorInstance.RegisterValidation("label", validateLabel)
	validatorInstance.RegisterTagNameFunc(formFieldName)
}

// formFieldName reports fields by their form tag so errors can be shown next
// to the matching input.
func formFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// validateLabel accepts 2-50 letters, digits, spaces, dashes and underscores.
func validateLabel(fl validator.FieldLevel) bool {
	return labelPattern.MatchString(fl.Field().String())
}

// Validate checks a form against its validate tags.
func Validate(form any) error {
	return validatorInstance.Struct(form)
}

// FieldErrors maps the failing fields of a validation error to the failed
// tag, keyed by the form field name. Non-validation errors yield nil.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// EmailForm is the input of the email dialog.
type EmailForm struct {
	Label        string `form:"label" validate:"required,label"`
	EmailAddress string `form:"emailaddress" validate:"required,email"`
}

// PhoneForm is the input of the phone dialog.
type PhoneForm struct {
	Label       string `form:"label" validate:"required,label"`
	Phonenumber string `form:"phonenumber" validate:"required,min=6,max=20"`
}

// AddressForm is the input of the address dialog.
type AddressForm struct {
	Label   string `form:"label" validate:"required,label"`
	Address
}

// BankForm is the input of the bank account dialog.
type BankForm struct {
	Label       string `form:"label" validate:"required,label"`
	BankAccount
}

// PasswordForm is the input of the change-password dialog.
type PasswordForm struct {
	CurrentPassword string `form:"currentPassword" validate:"required"`
	NewPassword     string `form:"newPassword" validate:"required,min=6,max=100"`
	RepeatPassword  string `form:"repeatPassword" validate:"required,eqfield=NewPassword"`
}

// NameForm is the input of the edit-name dialog.
type NameForm struct {
	Firstname string `form:"firstname" validate:"max=60"`
	Lastname  string `form:"lastname" validate:"max=60"`
}

// SMSCodeForm is the input of the phone verification dialog.
type SMSCodeForm struct {
	SMSCode string `form:"smscode" validate:"required,numeric,max=10"`
}
