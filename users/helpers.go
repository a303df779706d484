package users

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/plateful/plateful/apperr"
)

// bindJSON decodes the request body into obj and translates validator failures
// into a field-keyed validation error.
func bindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		fields := make(map[string]any, len(ve))
		for _, fe := range ve {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return apperr.WithFields(apperr.WithMessage(apperr.ErrValidation, "all fields are required and must be well formed"), fields)
	}
	return apperr.Wrap(err, apperr.ErrValidation, "could not parse request body")
}
