package ports

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Amund211/lana/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Authenticator resolves the user id of a request
type Authenticator func(r *http.Request) (string, error)

// NewJWTAuthenticator accepts HS256 bearer tokens signed with secret.
//
// The user id is read from the "sub" claim, falling back to "user_id".
// With an empty secret every request is rejected.
func NewJWTAuthenticator(secret []byte) Authenticator {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(r *http.Request) (string, error) {
		if len(secret) == 0 {
			return "", fmt.Errorf("%w: authentication is not configured", domain.ErrUnauthorized)
		}

		header := r.Header.Get("Authorization")
		scheme, tokenString, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			return "", fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
		}

		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
		}

		userID, err := claims.GetSubject()
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
		}
		if userID == "" {
			userID, _ = claims["user_id"].(string)
		}
		if userID == "" {
			return "", fmt.Errorf("%w: token has no user id", domain.ErrUnauthorized)
		}

		return userID, nil
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrForbidden) {
		writeJSON(w, r, http.StatusForbidden, errorResponse{Error: "Forbidden", Message: "Access to this session is not allowed"})
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="lana"`)
	writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "Unauthorized", Message: "A valid bearer token is required"})
}
