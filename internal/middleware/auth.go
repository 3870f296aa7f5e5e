package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"alfredoptarigan/comparecv/internal/models"
)

const ctxUserKey = "current_user"

var ErrTokenInvalid = errors.New("token invalid")

// UserMetadata mirrors the profile fields stored by the auth provider.
type UserMetadata struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
}

type Claims struct {
	Email        string       `json:"email,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`

	jwt.RegisteredClaims
}

// Auth resolves the caller from an HS256 bearer token.
type Auth struct {
	secret   []byte
	required bool
}

func NewAuth(secret string, required bool) *Auth {
	return &Auth{
		secret:   []byte(secret),
		required: required,
	}
}

// Middleware attaches the current user when a valid token is present. A
// missing token passes through unless auth is required; a bad one never does.
func (a *Auth) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if !ok {
			if a.required {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Unauthorized",
				})
			}
			return c.Next()
		}

		user, err := a.ParseToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(ctxUserKey, user)
		return c.Next()
	}
}

// RequireUser rejects requests that reached it without a user.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

// ParseToken validates the token and maps its claims to a user.
func (a *Auth) ParseToken(tokenString string) (*models.User, error) {
	if len(a.secret) == 0 {
		return nil, ErrTokenInvalid
	}

	p := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims Claims
	tok, err := p.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	if tok == nil || !tok.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return userFromClaims(claims), nil
}

func userFromClaims(claims Claims) *models.User {
	name := claims.UserMetadata.Name
	if name == "" {
		if local, _, ok := strings.Cut(claims.Email, "@"); ok && local != "" {
			name = local
		} else {
			name = "Usuário"
		}
	}

	return &models.User{
		ID:      claims.Subject,
		Name:    name,
		Email:   claims.Email,
		Company: claims.UserMetadata.Company,
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous callers.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(ctxUserKey).(*models.User)
	return user
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
