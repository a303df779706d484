package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

func TestGenerateAndVerifyJWT(t *testing.T) {
	auth := &JWTAuth{Key: []byte("test-secret")}

	token, err := auth.GenerateJWT(12, "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := auth.VerifyJWT(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != 12 {
		t.Errorf("expected user id 12, got %d", claims.UserID)
	}
	if claims.Email != "a@x.com" {
		t.Errorf("expected email a@x.com, got %s", claims.Email)
	}
	if claims.Issuer != "plateful" {
		t.Errorf("wrong issuer: %s", claims.Issuer)
	}
}

func TestGenerateJWT_EmptyKey(t *testing.T) {
	auth := &JWTAuth{}
	if _, err := auth.GenerateJWT(1, "a@x.com"); err == nil {
		t.Fatal("expected an error for an empty signing key")
	}
}

func TestVerifyJWT_WrongKey(t *testing.T) {
	signer := &JWTAuth{Key: []byte("key-one")}
	verifier := &JWTAuth{Key: []byte("key-two")}

	token, err := signer.GenerateJWT(1, "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := verifier.VerifyJWT(token); err == nil {
		t.Fatal("expected verification to fail under a different key")
	}
}

func TestVerifyJWT_Garbage(t *testing.T) {
	auth := &JWTAuth{Key: []byte("test-secret")}
	if _, err := auth.VerifyJWT("not.a.token"); err == nil {
		t.Fatal("expected an error for garbage input")
	}
	if _, err := auth.VerifyJWT(""); err == nil {
		t.Fatal("expected an error for an empty token")
	}
}

func expiredToken(t *testing.T, key []byte) string {
	t.Helper()
	past := time.Now().UTC().Add(-2 * time.Hour)
	claims := TokenClaims{
		UserID: 7,
		Email:  "old@x.com",
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  past.Unix(),
			ExpiresAt: past.Add(time.Minute).Unix(),
			Issuer:    "plateful",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("could not sign token: %v", err)
	}
	return token
}

func TestVerifyJWT_Expired(t *testing.T) {
	key := []byte("test-secret")
	auth := &JWTAuth{Key: key}

	_, err := auth.VerifyJWT(expiredToken(t, key))
	if err == nil {
		t.Fatal("expected an expiry error")
	}
	e, ok := err.(*jwt.ValidationError)
	if !ok || e.Errors&jwt.ValidationErrorExpired == 0 {
		t.Fatalf("expected ValidationErrorExpired, got %v", err)
	}
}

func authTestRouter(auth *JWTAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", auth.AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	key := []byte("test-secret")
	auth := &JWTAuth{Key: key}
	router := authTestRouter(auth)

	valid, err := auth.GenerateJWT(33, "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"no header", "", http.StatusUnauthorized, "unauthorized"},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, "jwt_malformed"},
		{"expired token", "Bearer " + expiredToken(t, key), http.StatusUnauthorized, "jwt_expired"},
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"valid without bearer prefix", valid, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			var body map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json response: %v", err)
			}
			if tt.wantCode != "" && body["code"] != tt.wantCode {
				t.Errorf("expected code %q, got %v", tt.wantCode, body["code"])
			}
			if tt.wantStatus == http.StatusOK && body["user_id"] != float64(33) {
				t.Errorf("expected user_id 33, got %v", body["user_id"])
			}
		})
	}
}
