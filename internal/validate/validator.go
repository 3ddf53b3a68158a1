package validate

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate(req) after binding.
type RequestValidator struct {
	v *validator.Validate
}

// New returns a RequestValidator with struct tag validation enabled.
func New() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks the bound request struct against its `validate` tags and
// converts failures into a 400 echo.HTTPError so handlers can return the
// error unchanged.
func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
