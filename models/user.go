package models

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/plateful/plateful/apperr"
)

// User contains the plateful account table. SavedOrder is the persisted
// serving order of the user's saved recipes; every id in it references a
// SavedRecipe owned by this user.
type User struct {
	gorm.Model
	Name         string        `json:"name"`
	Email        string        `json:"email" gorm:"index:idx_email,unique"`
	Password     string        `json:"-"`
	SavedOrder   []uint        `json:"saved_order" gorm:"serializer:json"`
	SavedRecipes []SavedRecipe `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// AuthAccount links a user to an external auth provider (e.g., Google).
type AuthAccount struct {
	gorm.Model
	UserID         uint   `json:"user_id" gorm:"index;not null"`
	Provider       string `json:"provider" gorm:"size:32;not null;index:idx_provider_subject,unique"`
	ProviderUserID string `json:"provider_user_id" gorm:"size:191;not null;index:idx_provider_subject,unique"`
	Email          string `json:"email,omitempty" gorm:"size:191;index"`
	EmailVerified  bool   `json:"email_verified"`
}

// GetUserByID retrieves a user by primary key.
func GetUserByID(id uint, db *gorm.DB) (User, error) {
	var user User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, apperr.ErrOwnerNotFound
		}
		return user, apperr.Wrap(err, apperr.ErrDatabase, "")
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their (lowercased) email.
func GetUserByEmail(email string, db *gorm.DB) (User, error) {
	var user User
	if err := db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, apperr.ErrOwnerNotFound
		}
		return user, apperr.Wrap(err, apperr.ErrDatabase, "")
	}
	return user, nil
}

func (u *User) SanitizeEmail() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

func (u *User) HashPassword() error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), 8)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword reports whether plain matches the stored hash. OAuth-only
// accounts have no hash and never match.
func (u *User) CheckPassword(plain string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}
