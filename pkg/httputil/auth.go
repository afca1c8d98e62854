package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medflow/medflow-attendance/pkg/actor"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/logger"
	"github.com/medflow/medflow-attendance/pkg/permissions"
)

// AuthConfig configures the Authenticate middleware
type AuthConfig struct {
	Secret string
	Issuer string
	// TrustGatewayHeaders accepts the X-User-* headers set by the API gateway
	// when no bearer token is present.
	TrustGatewayHeaders bool
}

// Authenticate resolves the caller from a bearer token or, when enabled,
// from gateway headers. Requests without either are rejected with 401.
// /health is always allowed through.
func Authenticate(cfg AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			var (
				caller *actor.Actor
				err    error
			)
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				caller, err = parseBearer(authHeader, cfg)
				if err != nil {
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
					Error(w, err)
					return
				}
			} else if cfg.TrustGatewayHeaders && r.Header.Get("X-User-ID") != "" {
				caller = fromGatewayHeaders(r)
			} else {
				Error(w, errors.Unauthorized("missing authorization header"))
				return
			}

			ctx := actor.WithActor(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(authHeader string, cfg AuthConfig) (*actor.Actor, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.Unauthorized("invalid authorization header format")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}

	caller := &actor.Actor{}
	caller.ID, _ = claims["sub"].(string)
	caller.Email, _ = claims["email"].(string)
	caller.RoleName, _ = claims["role"].(string)
	if caller.ID == "" {
		return nil, errors.TokenInvalid()
	}

	if perms, ok := claims["permissions"].([]interface{}); ok {
		for _, perm := range perms {
			if s, ok := perm.(string); ok {
				caller.Permissions = append(caller.Permissions, s)
			}
		}
	}

	return caller, nil
}

func fromGatewayHeaders(r *http.Request) *actor.Actor {
	caller := &actor.Actor{
		ID:       r.Header.Get("X-User-ID"),
		Email:    r.Header.Get("X-User-Email"),
		RoleName: r.Header.Get("X-User-Role"),
	}

	raw := r.Header.Get("X-User-Permissions")
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &caller.Permissions); err != nil {
			caller.Permissions = nil
		}
	} else {
		caller.Permissions = permissions.Parse(raw)
	}
	return caller
}

// RequirePermission rejects unauthenticated callers with 401 and callers
// lacking the given permission with 403
func RequirePermission(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := actor.FromContext(r.Context())
			if caller == nil {
				Error(w, errors.Unauthorized("user not authenticated"))
				return
			}
			if !caller.Can(required) {
				Error(w, errors.Forbidden("missing permission "+required))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
