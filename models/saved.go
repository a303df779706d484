package models

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/plateful/plateful/apperr"
)

// SavedRecipe is a recipe a user bookmarked from the upstream API. Title,
// image, vegan and readyInMinutes are captured at save time so that listing
// saved recipes never depends on upstream availability.
//
// No DeletedAt column: unsaving must free the (user, external recipe) natural
// key so the same recipe can be saved again later.
type SavedRecipe struct {
	ID               uint      `json:"id" gorm:"primarykey"`
	ExternalRecipeID int       `json:"externalRecipeId" gorm:"index:idx_owner_recipe,unique;not null"`
	Title            string    `json:"title" gorm:"not null"`
	ImageURL         string    `json:"image" gorm:"not null"`
	IsVegan          bool      `json:"vegan"`
	ReadyInMinutes   int       `json:"readyInMinutes"`
	UserID           uint      `json:"-" gorm:"index:idx_owner_recipe,unique;not null"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// SaveRecipeInput holds the denormalized fields captured when saving a recipe.
type SaveRecipeInput struct {
	ExternalRecipeID int
	Title            string
	ImageURL         string
	IsVegan          bool
	ReadyInMinutes   int
}

// ListSaved returns the user's saved recipes in their persisted order. A user
// with nothing saved gets an empty slice, not an error.
func ListSaved(userID uint, db *gorm.DB) ([]SavedRecipe, error) {
	user, err := GetUserByID(userID, db)
	if err != nil {
		return nil, err
	}
	var recipes []SavedRecipe
	if err := db.Where("user_id = ?", userID).Find(&recipes).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDatabase, "could not load saved recipes")
	}
	return orderRecipes(recipes, user.SavedOrder), nil
}

// SaveRecipe creates a SavedRecipe for the user and appends it to their
// serving order. Saving the same upstream recipe twice is rejected.
func SaveRecipe(userID uint, input SaveRecipeInput, db *gorm.DB) (*SavedRecipe, error) {
	if input.ReadyInMinutes <= 0 {
		return nil, apperr.WithMessage(apperr.ErrValidation, "readyInMinutes must be a positive integer")
	}
	var recipe SavedRecipe
	err := db.Transaction(func(tx *gorm.DB) error {
		user, err := GetUserByID(userID, tx)
		if err != nil {
			return err
		}
		var existing SavedRecipe
		err = tx.Where("user_id = ? AND external_recipe_id = ?", userID, input.ExternalRecipeID).First(&existing).Error
		if err == nil {
			return apperr.ErrDuplicateSave
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(err, apperr.ErrDatabase, "")
		}
		recipe = SavedRecipe{
			ExternalRecipeID: input.ExternalRecipeID,
			Title:            input.Title,
			ImageURL:         input.ImageURL,
			IsVegan:          input.IsVegan,
			ReadyInMinutes:   input.ReadyInMinutes,
			UserID:           userID,
		}
		if err := tx.Create(&recipe).Error; err != nil {
			return apperr.Wrap(err, apperr.ErrDatabase, "could not save recipe")
		}
		// new saves always land at the end of the serving order
		user.SavedOrder = append(user.SavedOrder, recipe.ID)
		if err := tx.Save(&user).Error; err != nil {
			return apperr.Wrap(err, apperr.ErrDatabase, "could not update recipe order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// DeleteSaved removes a saved recipe and its order-list entry in one
// transaction. Ids owned by another user report not_found, never a permission
// error, so existence is not revealed across owners.
func DeleteSaved(userID, recipeID uint, db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		user, err := GetUserByID(userID, tx)
		if err != nil {
			return err
		}
		var recipe SavedRecipe
		err = tx.Where("id = ? AND user_id = ?", recipeID, userID).First(&recipe).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "recipe not found in saved recipes")
			}
			return apperr.Wrap(err, apperr.ErrDatabase, "")
		}
		user.SavedOrder = removeID(user.SavedOrder, recipe.ID)
		if err := tx.Save(&user).Error; err != nil {
			return apperr.Wrap(err, apperr.ErrDatabase, "could not update recipe order")
		}
		if err := tx.Delete(&SavedRecipe{}, recipe.ID).Error; err != nil {
			return apperr.Wrap(err, apperr.ErrDatabase, "could not delete recipe")
		}
		return nil
	})
}

// ReorderSaved replaces the user's serving order with ids. The list must be an
// exact permutation of the user's current saved recipe ids: no duplicates, no
// foreign ids and no drop-by-omission. On failure the persisted order is left
// untouched.
func ReorderSaved(userID uint, ids []uint, db *gorm.DB) ([]SavedRecipe, error) {
	if len(ids) == 0 {
		return nil, apperr.WithMessage(apperr.ErrInvalidReorder, "recipe id list is empty")
	}
	var ordered []SavedRecipe
	err := db.Transaction(func(tx *gorm.DB) error {
		user, err := GetUserByID(userID, tx)
		if err != nil {
			return err
		}
		var recipes []SavedRecipe
		if err := tx.Where("user_id = ?", userID).Find(&recipes).Error; err != nil {
			return apperr.Wrap(err, apperr.ErrDatabase, "could not load saved recipes")
		}
		if err := validatePermutation(ids, recipes); err != nil {
			return err
		}
		user.SavedOrder = append([]uint(nil), ids...)
		if err := tx.Save(&user).Error; err != nil {
			return apperr.Wrap(err, apperr.ErrDatabase, "could not update recipe order")
		}
		ordered = orderRecipes(recipes, ids)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ordered, nil
}

func validatePermutation(ids []uint, recipes []SavedRecipe) error {
	if len(ids) != len(recipes) {
		return apperr.WithMessage(apperr.ErrInvalidReorder, "id list must include every saved recipe exactly once")
	}
	owned := make(map[uint]bool, len(recipes))
	for _, r := range recipes {
		owned[r.ID] = true
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !owned[id] {
			return apperr.WithMessage(apperr.ErrInvalidReorder, "one or more recipe ids are invalid or not owned by user")
		}
		if seen[id] {
			return apperr.WithMessage(apperr.ErrInvalidReorder, "duplicate recipe id in list")
		}
		seen[id] = true
	}
	return nil
}

// orderRecipes arranges rows by the persisted order list. Rows missing from
// the list still belong to the user and are served last.
func orderRecipes(recipes []SavedRecipe, order []uint) []SavedRecipe {
	byID := make(map[uint]SavedRecipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}
	out := make([]SavedRecipe, 0, len(recipes))
	seen := make(map[uint]bool, len(order))
	for _, id := range order {
		if r, ok := byID[id]; ok && !seen[id] {
			out = append(out, r)
			seen[id] = true
		}
	}
	for _, r := range recipes {
		if !seen[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func removeID(ids []uint, id uint) []uint {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
