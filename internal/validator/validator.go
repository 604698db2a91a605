package validator

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validator collects field level errors for a request.
type Validator struct {
	Errors map[string]string
}

// New returns a Validator with an empty error map.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid reports whether no errors were recorded.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records message for key unless key already has an error.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check adds an error message only if ok is false.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// ValidationError is the details payload returned for rejected requests.
type ValidationError struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, errs map[string]string) *ValidationError {
	return &ValidationError{Message: message, Errors: errs}
}

// RegisterBindingRules installs the custom struct tag rules on a go-playground engine.
func RegisterBindingRules(engine *validator.Validate) error {
	if err := engine.RegisterValidation("ethaddr", func(fl validator.FieldLevel) bool {
		return IsHexAddress(fl.Field().String())
	}); err != nil {
		return err
	}
	return engine.RegisterValidation("wei", func(fl validator.FieldLevel) bool {
		return IsNonNegativeDecimal(fl.Field().String())
	})
}

var (
	ginRulesOnce sync.Once
	ginRulesErr  error
)

// RegisterGinRules installs the binding rules on gin's default validator.
// Safe to call more than once.
func RegisterGinRules() error {
	ginRulesOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			ginRulesErr = errors.New("gin binding engine is not go-playground/validator")
			return
		}
		ginRulesErr = RegisterBindingRules(engine)
	})
	return ginRulesErr
}
