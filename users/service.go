// Package users holds registration, login and OAuth handlers.
package users

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	gateway "github.com/plateful/plateful/apigateway"
	"github.com/plateful/plateful/models"
)

type Auther interface {
	VerifyJWT(token string) (*gateway.TokenClaims, error)
	GenerateJWT(userID uint, email string) (string, error)
}

// Service is the dependency bag for the auth endpoints.
type Service struct {
	Db     *gorm.DB
	Logger *logrus.Logger
	Config models.Config
	Auth   Auther
}
