package handlers

import (
	"github.com/nfrund/userhome/internal/domain"
)

// CustomValidator implements echo.Validator on top of the dialog form rules
// in domain, so handlers can call c.Validate.
type CustomValidator struct{}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i any) error {
	return domain.Validate(i)
}
