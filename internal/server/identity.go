package server

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	"github.com/smallbiznis/donasi/internal/auditcontext"
	obscontext "github.com/smallbiznis/donasi/internal/observability/context"
)

const (
	RoleAdmin   = "admin"
	RoleAuditor = "auditor"
	RoleDonor   = "donatur"

	contextIdentityKey = "identity"
)

// Claims is the bearer token payload. The subject carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID snowflake.ID
	Role   string
}

func (i Identity) HasRole(roles ...string) bool {
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

func isKnownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAuditor, RoleDonor:
		return true
	default:
		return false
	}
}

// SignToken issues an HS256 token for userID with the given role.
func SignToken(secret, issuer string, userID snowflake.ID, role string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret is empty")
	}
	if !isKnownRole(role) {
		return "", errors.New("unknown role")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, issuer, tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// requestContext copies request metadata into the audit context so service-level audit
// entries carry the request id, client IP and user agent.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = auditcontext.WithRequestID(ctx, obscontext.RequestIDFromContext(ctx))
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authenticated requires a valid bearer token and stores the caller identity.
func (s *Server) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(s.cfg.Auth.JWTSecret)
		if secret == "" {
			s.log.Error("auth.jwt_secret is not configured")
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		parts := strings.Fields(strings.TrimSpace(c.GetHeader("Authorization")))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := parseToken(secret, strings.TrimSpace(s.cfg.Auth.Issuer), parts[1])
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := snowflake.ParseString(claims.Subject)
		if err != nil || userID <= 0 || !isKnownRole(claims.Role) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity := Identity{UserID: userID, Role: claims.Role}
		c.Set(contextIdentityKey, identity)

		actorID := userID.String()
		ctx := c.Request.Context()
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeUser), actorID)
		ctx = auditcontext.WithRole(ctx, claims.Role)
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeUser), actorID)
		ctx = obscontext.WithRole(ctx, claims.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after Authenticated.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !identity.HasRole(roles...) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}
