package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plateful/plateful/models"
)

const (
	googleProvider = "google"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleUserURL  = "https://openidconnect.googleapis.com/v1/userinfo"
)

type googleAuthRequest struct {
	Code         string `json:"code" binding:"required"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// googleDecision tags how an OAuth login maps onto the user table.
type googleDecision int

const (
	// the provider subject is already linked to a user
	existingOAuthUser googleDecision = iota
	// the email matches a local account; attach the provider to it instead
	// of creating a duplicate
	mergeIntoExisting
	// first login, no matching account at all
	newUser
)

// GoogleAuth exchanges an OAuth code for tokens, then logs in or creates the user.
func (s *Service) GoogleAuth(c *gin.Context) {
	var req googleAuthRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": err.Error()})
		return
	}
	if s.Config.GoogleClientID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "missing_google_client", "message": "google client id not configured"})
		return
	}

	token, err := s.exchangeGoogleCode(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "token_exchange_failed", "message": err.Error()})
		return
	}

	info, err := s.fetchGoogleUserInfo(c.Request.Context(), token.AccessToken)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "userinfo_failed", "message": err.Error()})
		return
	}
	if info.Sub == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_userinfo", "message": "google subject missing"})
		return
	}

	var user models.User
	var decision googleDecision
	err = s.Db.Transaction(func(tx *gorm.DB) error {
		user, decision, err = resolveGoogleAccount(tx, info)
		return err
	})
	if err != nil {
		s.Logger.WithField("error", err.Error()).Error("google login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "user_create_failed", "message": err.Error()})
		return
	}

	jwtToken, err := s.Auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "jwt_failed", "message": err.Error()})
		return
	}
	c.Header("Authorization", jwtToken)
	c.JSON(http.StatusOK, gin.H{"authorization": jwtToken, "user": user, "new_user": decision == newUser})
}

// resolveGoogleAccount decides deterministically how the google identity maps
// onto the user table: subject link first, then email merge, then a fresh
// account. Must run inside a transaction.
func resolveGoogleAccount(tx *gorm.DB, info googleUserInfo) (models.User, googleDecision, error) {
	var user models.User

	var account models.AuthAccount
	if err := tx.Where("provider = ? AND provider_user_id = ?", googleProvider, info.Sub).First(&account).Error; err == nil {
		return user, existingOAuthUser, tx.First(&user, account.UserID).Error
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, existingOAuthUser, err
	}

	email := strings.ToLower(info.Email)
	if email != "" {
		if err := tx.Where("email = ?", email).First(&user).Error; err == nil {
			account = models.AuthAccount{
				UserID:         user.ID,
				Provider:       googleProvider,
				ProviderUserID: info.Sub,
				Email:          email,
				EmailVerified:  info.EmailVerified,
			}
			return user, mergeIntoExisting, tx.Create(&account).Error
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return user, mergeIntoExisting, err
		}
	}

	// oauth-only accounts carry no password hash
	user = models.User{
		Name:  info.Name,
		Email: email,
	}
	if err := tx.Create(&user).Error; err != nil {
		return user, newUser, err
	}
	account = models.AuthAccount{
		UserID:         user.ID,
		Provider:       googleProvider,
		ProviderUserID: info.Sub,
		Email:          email,
		EmailVerified:  info.EmailVerified,
	}
	return user, newUser, tx.Create(&account).Error
}

func (s *Service) exchangeGoogleCode(ctx context.Context, req googleAuthRequest) (googleTokenResponse, error) {
	var token googleTokenResponse

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", req.Code)
	form.Set("client_id", s.Config.GoogleClientID)
	if s.Config.GoogleClientSecret != "" {
		form.Set("client_secret", s.Config.GoogleClientSecret)
	}
	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = s.Config.GoogleRedirectURL
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	if req.CodeVerifier != "" {
		form.Set("code_verifier", req.CodeVerifier)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return token, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return token, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return token, fmt.Errorf("google token exchange failed: %s", string(body))
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return token, err
	}
	if token.AccessToken == "" {
		return token, errors.New("missing access_token from google")
	}
	return token, nil
}

func (s *Service) fetchGoogleUserInfo(ctx context.Context, accessToken string) (googleUserInfo, error) {
	var info googleUserInfo
	if accessToken == "" {
		return info, errors.New("missing access token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserURL, nil)
	if err != nil {
		return info, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return info, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return info, fmt.Errorf("google userinfo failed: %s", string(body))
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return info, err
	}
	return info, nil
}
