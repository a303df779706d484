package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	gateway "github.com/plateful/plateful/apigateway"
	"github.com/plateful/plateful/models"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a local-password account and signs the user in.
func (s *Service) Register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		gateway.AbortError(c, err)
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		Password: req.Password,
	}
	user.SanitizeEmail()

	if _, err := models.GetUserByEmail(user.Email, s.Db); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "email_taken", "message": "an account with this email already exists"})
		return
	}

	if err := user.HashPassword(); err != nil {
		s.Logger.WithField("error", err.Error()).Error("could not hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "could not create account"})
		return
	}
	if err := s.Db.Create(&user).Error; err != nil {
		s.Logger.WithField("error", err.Error()).Error("could not create user")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "database_error", "message": "could not create account"})
		return
	}

	token, err := s.Auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "jwt_failed", "message": err.Error()})
		return
	}
	c.Header("Authorization", token)
	c.JSON(http.StatusCreated, gin.H{"authorization": token, "user": user})
}

// Login checks email and password and issues a JWT.
func (s *Service) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		gateway.AbortError(c, err)
		return
	}

	var user models.User
	if notFound := s.Db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; errors.Is(notFound, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "not_found", "message": "no account with this email"})
		return
	}
	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "wrong_password", "message": "wrong password entered"})
		return
	}

	token, err := s.Auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "jwt_failed", "message": err.Error()})
		return
	}
	c.Header("Authorization", token)
	c.JSON(http.StatusOK, gin.H{"authorization": token, "user": user})
}

// Profile returns the current user by token.
func (s *Service) Profile(c *gin.Context) {
	userID := gateway.UserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": "missing user id"})
		return
	}
	user, err := models.GetUserByID(userID, s.Db)
	if err != nil {
		gateway.AbortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
