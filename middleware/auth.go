package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloudscribe/pkg/logger"
	"cloudscribe/scribedb"
	"cloudscribe/store"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserKey contextKey = "user"

// UserFrom pulls the authenticated user out of the request context.
func UserFrom(ctx context.Context) *store.User {
	u, _ := ctx.Value(UserKey).(*store.User)
	return u
}

// Auth wraps handlers that require an authenticated user. Two schemes are
// accepted: a Bearer JWT whose sub claim is the user ID (issued by the
// login endpoint), or the legacy Username/Keyphrase header pair.
func Auth(db *scribedb.ScribeDB, jwtSecret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := authenticate(db, jwtSecret, r)
		if err != nil {
			if errors.Is(err, scribedb.ErrNotOperational) {
				http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "Unauthorized user.", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authenticate(db *scribedb.ScribeDB, jwtSecret string, r *http.Request) (*store.User, error) {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return userFromToken(db, jwtSecret, strings.TrimPrefix(authHeader, "Bearer "))
	}

	// Legacy scheme: per-request username + keyphrase headers.
	username := r.Header.Get("Username")
	keyphrase := r.Header.Get("Keyphrase")
	if username == "" || keyphrase == "" {
		return nil, errors.New("no credentials provided")
	}

	user, err := db.RetrieveUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if user.Keyphrase != keyphrase {
		return nil, errors.New("keyphrase mismatch")
	}
	return user, nil
}

func userFromToken(db *scribedb.ScribeDB, jwtSecret, tokenString string) (*store.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		logger.Sugar.Debugf("Invalid token: %v", err)
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("could not parse token claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("sub claim is missing or invalid")
	}
	return db.RetrieveUser(userID)
}

// IssueToken signs a JWT for the user, used by the login endpoint.
func IssueToken(jwtSecret, userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}
