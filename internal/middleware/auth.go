// Package middleware provides authentication, rate limiting, logging,
// tracing and metrics middleware for the HTTP server.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"socialhub/internal/cache"
	"socialhub/internal/config"
	"socialhub/internal/models"
	"socialhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Fiber locals written by the auth middleware.
const (
	LocalUserID = "userID"
	LocalClaims = "claims"
)

// Claims is the JWT payload issued at login and registration.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTAuth issues and verifies HS256 tokens and websocket tickets.
type JWTAuth struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	rdb      *redis.Client
	now      func() time.Time
}

// NewJWTAuth builds the authenticator. rdb may be nil; revocation and
// websocket tickets are then unavailable.
func NewJWTAuth(cfg *config.Config, rdb *redis.Client) *JWTAuth {
	ttl := time.Duration(cfg.JWTTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTAuth{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      ttl,
		rdb:      rdb,
		now:      time.Now,
	}
}

// Issue signs a token for userID.
func (a *JWTAuth) Issue(userID, email string) (string, *Claims, error) {
	now := a.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			Audience:  jwt.ClaimStrings{a.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse verifies signature, issuer, audience and expiry.
func (a *JWTAuth) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Revoke blacklists the token until it expires. Without Redis it is a no-op.
func (a *JWTAuth) Revoke(ctx context.Context, claims *Claims) error {
	if a.rdb == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return cache.BlacklistToken(ctx, a.rdb, claims.ID, claims.ExpiresAt.Time)
}

// IssueTicket returns a single-use websocket ticket for userID.
func (a *JWTAuth) IssueTicket(ctx context.Context, userID string) (string, error) {
	if a.rdb == nil {
		return "", errors.New("websocket tickets require redis")
	}
	return cache.IssueWSTicket(ctx, a.rdb, userID)
}

// TicketsEnabled reports whether websocket tickets can be issued.
func (a *JWTAuth) TicketsEnabled() bool { return a.rdb != nil }

// Required enforces a valid, unrevoked bearer token.
func (a *JWTAuth) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := a.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		if a.rdb != nil && claims.ID != "" {
			revoked, err := cache.IsTokenBlacklisted(c.UserContext(), a.rdb, claims.ID)
			if err != nil {
				// Fail open: a Redis outage must not log everyone out.
				slog.WarnContext(c.UserContext(), "token revocation check failed, allowing request",
					slog.String("jti", claims.ID),
					slog.String("error", err.Error()),
				)
			}
			if err == nil && revoked {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		c.Locals(LocalClaims, claims)
		setUser(c, claims.Subject)
		return c.Next()
	}
}

// WebSocketRequired authenticates websocket upgrades with a single-use
// `ticket` query parameter. When Redis is not configured it accepts a
// `token` query parameter instead.
func (a *JWTAuth) WebSocketRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.rdb != nil {
			ticket := c.Query("ticket")
			if ticket == "" {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("WebSocket ticket required"))
			}
			userID, err := cache.RedeemWSTicket(c.UserContext(), a.rdb, ticket)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			setUser(c, userID)
			return c.Next()
		}

		claims, err := a.Parse(c.Query("token"))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		setUser(c, claims.Subject)
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, userID string) {
	c.Locals(LocalUserID, userID)
	c.SetUserContext(context.WithValue(c.UserContext(), observability.UserIDKey, userID))
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// UserID returns the authenticated user id, or "" before auth ran.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// ClaimsFrom returns the verified claims of the current request.
func ClaimsFrom(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(LocalClaims).(*Claims)
	return claims
}
