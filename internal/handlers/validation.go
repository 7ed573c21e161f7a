package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/currency"
)

// RegisterValidators adds the custom binding tags used by the request DTOs to
// gin's validator engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not a go-playground validator")
	}
	if err := v.RegisterValidation("currency", isCurrencyCode); err != nil {
		return fmt.Errorf("register currency validation: %w", err)
	}
	return nil
}

// isCurrencyCode accepts three letter ISO 4217 codes in any case.
func isCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 3 {
		return false
	}
	_, err := currency.ParseISO(strings.ToUpper(code))
	return err == nil
}
