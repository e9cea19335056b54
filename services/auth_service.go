// services/auth_service.go
package services

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenLifetime = 30 * 24 * time.Hour

type AuthService struct {
	DB     *gorm.DB
	OAuth  *OAuthClient
	Mailer *ResendClient
}

func NewAuthService(db *gorm.DB, oauth *OAuthClient, mailer *ResendClient) *AuthService {
	return &AuthService{DB: db, OAuth: oauth, Mailer: mailer}
}

// IssueToken signs a 30-day HS256 token for the user.
func IssueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// setAuthCookie mirrors the token into an httpOnly cookie so browser clients
// don't have to manage the header themselves.
func setAuthCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(tokenLifetime),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// Register creates a user with a bcrypt-hashed password and sends the
// verification email.
func (s *AuthService) Register(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Country  string `json:"country"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return utils.FailCode(c, utils.CodeValidationError, "valid email is required")
	}
	if req.Username == "" {
		return utils.FailCode(c, utils.CodeValidationError, "username is required")
	}
	if len(req.Password) < 8 {
		return utils.FailCode(c, utils.CodeValidationError, "password must be at least 8 characters")
	}

	var existing models.User
	if err := s.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return utils.FailCode(c, utils.CodeDuplicateEmail, "email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to check email", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeInternalServerError, "failed to hash password", err))
	}

	user := &models.User{
		ID:                uuid.NewString(),
		Email:             req.Email,
		Username:          req.Username,
		PasswordHash:      string(hash),
		Role:              models.RoleUser,
		Country:           req.Country,
		VerificationToken: uuid.NewString(),
	}
	if err := s.DB.Create(user).Error; err != nil {
		log.Printf("[Auth] register failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to create user", err))
	}

	if s.Mailer != nil {
		if err := s.Mailer.SendVerificationEmail(user.Email, user.VerificationToken); err != nil {
			// Registration still succeeds; the user can request a resend.
			log.Printf("[Auth] verification email failed for %s: %v", user.Email, err)
		}
	}

	token, err := IssueToken(user)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeInternalServerError, "failed to issue token", err))
	}
	setAuthCookie(c, token)

	return utils.Created(c, "registered", fiber.Map{"user": user, "token": token})
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}

	var user models.User
	if err := s.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FailCode(c, utils.CodeUnauthorized, "invalid email or password")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch user", err))
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return utils.FailCode(c, utils.CodeUnauthorized, "invalid email or password")
	}

	token, err := IssueToken(&user)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeInternalServerError, "failed to issue token", err))
	}
	setAuthCookie(c, token)

	return utils.OK(c, "logged in", fiber.Map{"user": user, "token": token})
}

// VerifyEmail flips the verified flag for a valid verification token.
func (s *AuthService) VerifyEmail(c *fiber.Ctx) error {
	token := c.Params("token")

	var user models.User
	if err := s.DB.Where("verification_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FailCode(c, utils.CodeValidationError, "invalid verification token")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch user", err))
	}

	if err := s.DB.Model(&user).Updates(map[string]interface{}{
		"verified":           true,
		"verification_token": "",
	}).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to verify user", err))
	}
	return utils.OK(c, "email verified", fiber.Map{"verified": true})
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FailCode(c, utils.CodeUserNotFound, "user not found")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch user", err))
	}
	return utils.OK(c, "profile fetched", user)
}

// --- OAuth ---

// GoogleRedirect sends the browser to Google's consent screen.
func (s *AuthService) GoogleRedirect(c *fiber.Ctx) error {
	return c.Redirect(s.OAuth.GoogleAuthURL(), fiber.StatusTemporaryRedirect)
}

// GoogleCallback exchanges the code, fetches the profile and finds or
// creates the matching user.
func (s *AuthService) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return utils.FailCode(c, utils.CodeValidationError, "missing authorization code")
	}

	profile, err := s.OAuth.ExchangeGoogle(code)
	if err != nil {
		log.Printf("[Auth] google exchange failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeUnauthorized, "google authentication failed", err))
	}
	return s.finishOAuthLogin(c, profile, "google")
}

// FacebookRedirect sends the browser to Facebook's consent screen.
func (s *AuthService) FacebookRedirect(c *fiber.Ctx) error {
	return c.Redirect(s.OAuth.FacebookAuthURL(), fiber.StatusTemporaryRedirect)
}

// FacebookCallback exchanges the code via the Graph API.
func (s *AuthService) FacebookCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return utils.FailCode(c, utils.CodeValidationError, "missing authorization code")
	}

	profile, err := s.OAuth.ExchangeFacebook(code)
	if err != nil {
		log.Printf("[Auth] facebook exchange failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeUnauthorized, "facebook authentication failed", err))
	}
	return s.finishOAuthLogin(c, profile, "facebook")
}

// finishOAuthLogin finds the user by provider id, then by email (linking the
// provider id), then creates a fresh verified account.
func (s *AuthService) finishOAuthLogin(c *fiber.Ctx, profile *OAuthProfile, provider string) error {
	column := "google_id"
	if provider == "facebook" {
		column = "facebook_id"
	}

	var user models.User
	err := s.DB.Where(column+" = ?", profile.ProviderID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && profile.Email != "" {
		err = s.DB.Where("email = ?", strings.ToLower(profile.Email)).First(&user).Error
		if err == nil {
			// Link the provider to the existing account.
			if err := s.DB.Model(&user).Update(column, profile.ProviderID).Error; err != nil {
				return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to link account", err))
			}
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ID:       uuid.NewString(),
			Email:    strings.ToLower(profile.Email),
			Username: profile.Name,
			Role:     models.RoleUser,
			Verified: true, // provider-verified email
		}
		providerID := profile.ProviderID
		if provider == "facebook" {
			user.FacebookID = &providerID
		} else {
			user.GoogleID = &providerID
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to create user", err))
		}
	} else if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch user", err))
	}

	token, err := IssueToken(&user)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeInternalServerError, "failed to issue token", err))
	}
	setAuthCookie(c, token)

	return utils.OK(c, "logged in", fiber.Map{"user": user, "token": token})
}
