package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "rentmate/pkg/errors"
	"rentmate/pkg/logger"
	"rentmate/pkg/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	identityKey contextKey = "identity"
)

// Identity is the authenticated caller, taken from the bearer token.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) Caller() model.Caller {
	return model.Caller{UserID: i.UserID, Admin: i.IsAdmin()}
}

type identityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// Authenticate requires a valid HS256 bearer token carrying sub and role.
func Authenticate(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := ParseToken(r.Header.Get("Authorization"), key)
			if err != nil {
				log.Warn("Rejected unauthenticated request",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func ParseToken(header string, key []byte) (Identity, error) {
	tokenStr := strings.TrimSpace(header)
	if tokenStr == "" {
		return Identity{}, errors.New("missing authorization")
	}
	if len(tokenStr) > 7 && strings.EqualFold(tokenStr[:7], "bearer ") {
		tokenStr = strings.TrimSpace(tokenStr[7:])
	}

	claims := &identityClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return Identity{}, err
	}
	if !tok.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("token has no subject")
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return Identity{UserID: claims.Subject, Role: role}, nil
}

// SignToken issues an HS256 token for id. Issuance belongs to the auth
// service; this exists for local tooling and tests.
func SignToken(secret string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// AdminOnly guards an httprouter handle. It must sit behind Authenticate.
func AdminOnly(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			_ = apperrors.WriteError(w, apperrors.Unauthorized("Authentication required"))
			return
		}
		if !id.IsAdmin() {
			_ = apperrors.WriteError(w, apperrors.Forbidden("Admin access required"))
			return
		}
		next(w, r, ps)
	}
}
