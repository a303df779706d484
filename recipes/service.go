// Package recipes holds recipe discovery and saved-recipe handlers.
package recipes

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/plateful/plateful/apperr"
	"github.com/plateful/plateful/models"
	"github.com/plateful/plateful/spoonacular"
)

// Service is the dependency bag for the recipe endpoints.
type Service struct {
	Db     *gorm.DB
	Logger *logrus.Logger
	Config models.Config
	Spoon  *spoonacular.Client
}

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
		return apperr.WithFields(apperr.WithMessage(apperr.ErrValidation, "all recipe fields are required"), fields)
	}
	return apperr.Wrap(err, apperr.ErrValidation, "could not parse request body")
}
