package recipes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	gateway "github.com/plateful/plateful/apigateway"
	"github.com/plateful/plateful/apperr"
	"github.com/plateful/plateful/models"
)

// saveRecipeRequest mirrors the fields captured at save time. Pointer fields
// make presence explicit: vegan must be a real boolean, not merely missing.
type saveRecipeRequest struct {
	ExternalRecipeID *int   `json:"recipeId" binding:"required"`
	Title            string `json:"title" binding:"required"`
	ImageURL         string `json:"image" binding:"required"`
	IsVegan          *bool  `json:"vegan" binding:"required"`
	ReadyInMinutes   *int   `json:"readyInMinutes" binding:"required,gt=0"`
}

type reorderRequest struct {
	RecipeIDs []uint `json:"recipeIds" binding:"required,min=1"`
}

// ListSaved returns the user's saved recipes in their persisted order.
func (s *Service) ListSaved(c *gin.Context) {
	recipes, err := models.ListSaved(gateway.UserID(c), s.Db)
	if err != nil {
		gateway.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// SaveRecipe bookmarks an upstream recipe for the current user.
func (s *Service) SaveRecipe(c *gin.Context) {
	var req saveRecipeRequest
	if err := bindJSON(c, &req); err != nil {
		gateway.AbortError(c, err)
		return
	}
	recipe, err := models.SaveRecipe(gateway.UserID(c), models.SaveRecipeInput{
		ExternalRecipeID: *req.ExternalRecipeID,
		Title:            req.Title,
		ImageURL:         req.ImageURL,
		IsVegan:          *req.IsVegan,
		ReadyInMinutes:   *req.ReadyInMinutes,
	}, s.Db)
	if err != nil {
		gateway.AbortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Recipe saved!", "recipe": recipe})
}

// DeleteSaved removes one saved recipe from the user's collection.
func (s *Service) DeleteSaved(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		gateway.AbortError(c, apperr.WithMessage(apperr.ErrValidation, "valid saved recipe id is required"))
		return
	}
	if err := models.DeleteSaved(gateway.UserID(c), uint(id), s.Db); err != nil {
		gateway.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully"})
}

// ReorderSaved replaces the user's serving order and returns the refreshed
// list.
func (s *Service) ReorderSaved(c *gin.Context) {
	var req reorderRequest
	if err := bindJSON(c, &req); err != nil {
		gateway.AbortError(c, err)
		return
	}
	recipes, err := models.ReorderSaved(gateway.UserID(c), req.RecipeIDs, s.Db)
	if err != nil {
		gateway.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}
