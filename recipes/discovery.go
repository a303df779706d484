package recipes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	gateway "github.com/plateful/plateful/apigateway"
	"github.com/plateful/plateful/apperr"
)

const randomBatchSize = 10

// GetAllRecipes serves a batch of random recipes for the discovery page.
func (s *Service) GetAllRecipes(c *gin.Context) {
	recipes, err := s.Spoon.Random(c.Request.Context(), randomBatchSize)
	if err != nil {
		s.Logger.WithField("error", err.Error()).Error("could not fetch random recipes")
		gateway.AbortError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", recipes)
}

// SearchRecipes runs a free-text search against the upstream API.
func (s *Service) SearchRecipes(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		gateway.AbortError(c, apperr.WithMessage(apperr.ErrValidation, "search query is required"))
		return
	}
	results, err := s.Spoon.Search(c.Request.Context(), query)
	if err != nil {
		s.Logger.WithField("error", err.Error()).Error("could not search recipes")
		gateway.AbortError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", results)
}

// GetRecipeByID proxies the upstream detail object for one recipe.
func (s *Service) GetRecipeByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		gateway.AbortError(c, apperr.WithMessage(apperr.ErrValidation, "valid recipe id is required"))
		return
	}
	detail, err := s.Spoon.ByID(c.Request.Context(), id)
	if err != nil {
		s.Logger.WithField("error", err.Error()).Error("could not fetch recipe details")
		gateway.AbortError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", detail)
}
