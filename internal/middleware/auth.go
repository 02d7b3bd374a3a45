package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type identityKeyType struct{}

var identityKey identityKeyType

// Claims defines the structure of the JWT claims expected from the identity provider.
type Claims struct {
	UserID   string                 `json:"user_id"`
	Email    string                 `json:"email"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and returns the caller it names.
func ParseToken(tokenString, jwtSecret string) (domain.Authenticated, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return domain.Authenticated{}, err
	}
	if !token.Valid {
		return domain.Authenticated{}, errors.New("token is not valid")
	}
	if claims.UserID == "" {
		return domain.Authenticated{}, errors.New("user_id not found in token claims")
	}
	return domain.Authenticated{UserID: claims.UserID, Email: claims.Email, Metadata: claims.Metadata}, nil
}

// bearerToken reads the Authorization header, or the access_token query
// parameter that browsers must use for WebSockets.
func bearerToken(r *http.Request) (string, bool, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", true, errors.New("authorization header format must be 'Bearer <token>'")
		}
		return parts[1], true, nil
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, true, nil
	}
	return "", false, nil
}

// Identify attaches the caller's identity to the request context. A request
// without credentials continues as Anonymous; bad credentials are rejected.
func Identify(jwtSecret string, log *logger.Logger) func(http.Handler) http.Handler {
	log = log.Named("Identify")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, present, err := bearerToken(r)
			if !present {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), domain.Anonymous{})))
				return
			}
			if err == nil {
				var user domain.Authenticated
				if user, err = ParseToken(tokenString, jwtSecret); err == nil {
					noteUser(r.Context(), user.UserID)
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user)))
					return
				}
			}

			log.Warn("Rejected credentials", zap.String("path", r.URL.Path), zap.Error(err))
			message := "token is invalid"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "token has expired"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller stored by Identify, Anonymous when none.
func IdentityFrom(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(identityKey).(domain.Identity); ok && id != nil {
		return id
	}
	return domain.Anonymous{}
}
