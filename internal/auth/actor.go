package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/case-service/internal/domain"
)

const actorKey = "request_actor"

// Claims describes the actor-attribution token payload. Tokens carry
// identity for audit attribution only; they do not gate access.
type Claims struct {
	SubjectID string  `json:"sub"`
	Role      *string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ActorResolver extracts the acting principal from bearer tokens.
// Requests without a token fall back to the default reviewer actor,
// so anonymous local calls still produce attributable audit events.
type ActorResolver struct {
	secret []byte
}

// NewActorResolver builds a resolver around the shared signing secret.
func NewActorResolver(secret string) *ActorResolver {
	return &ActorResolver{secret: []byte(secret)}
}

// Handle resolves the request actor and stores it in request locals.
// A malformed or expired token is treated the same as no token.
func (r *ActorResolver) Handle(c *fiber.Ctx) error {
	actor := domain.UserActor("user", "REVIEWER")

	if header := c.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if claims, err := r.parse(parts[1]); err == nil && claims.SubjectID != "" {
				role := "REVIEWER"
				if claims.Role != nil && *claims.Role != "" {
					role = *claims.Role
				}
				actor = domain.UserActor(claims.SubjectID, role)
			}
		}
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

func (r *ActorResolver) parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ActorFromContext retrieves the resolved actor for the request.
func ActorFromContext(c *fiber.Ctx) domain.Actor {
	if val := c.Locals(actorKey); val != nil {
		if actor, ok := val.(domain.Actor); ok {
			return actor
		}
	}
	return domain.UserActor("user", "REVIEWER")
}
