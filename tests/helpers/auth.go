package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/models"
	"github.com/lexkeep/dyndocs/internal/types"
)

// SeedUser creates a user row for a test account.
func SeedUser(t *testing.T, db *gorm.DB, email, name string, role types.Role) models.User {
	t.Helper()
	user := models.User{Email: email, Name: name, Role: role}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user %s: %v", email, err)
	}
	return user
}

// MakeToken signs a bearer token for a test account the way the service
// signs them, so requests against a running container authenticate.
func MakeToken(t *testing.T, secret string, user models.User) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.Email,
		"email": user.Email,
		"role":  string(user.Role),
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token for %s: %v", user.Email, err)
	}
	return signed
}
