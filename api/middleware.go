package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/models"
)

// MiddlewareDB is a struct that holds the database
type MiddlewareDB struct {
	DB databases.UserDatabase
}

var authenticator auth.Authenticator
var cache store.Cache

type contextKey string

const authInfoKey contextKey = "authInfo"

// WithAuthInfo attaches the authenticated user to a context
func WithAuthInfo(ctx context.Context, info auth.Info) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}

// AuthInfoFrom returns the authenticated user attached by Middleware, if any
func AuthInfoFrom(ctx context.Context) (auth.Info, bool) {
	info, ok := ctx.Value(authInfoKey).(auth.Info)
	return info, ok
}

// Middleware adds some basic header authentication around accessing the routes
// and attaches the authenticated user to the request context
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		zap.S().Debugf("User %s Authenticated\n", user.UserName())
		next.ServeHTTP(w, r.WithContext(WithAuthInfo(r.Context(), user)))
	})
}

// AdminOnly restricts a route to administrators. Both a bearer token issued
// to an Admin user and a signed admin JWT are accepted
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := authenticator.Authenticate(r)
		if err == nil {
			for _, g := range user.Groups() {
				if g == models.RoleAdmin {
					next.ServeHTTP(w, r.WithContext(WithAuthInfo(r.Context(), user)))
					return
				}
			}
			zap.S().Warnw("forbidden, admin role required",
				"user", user.UserName(),
				"url", r.URL)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": "admin role required"}`))
			return
		}
		if info, jwtErr := adminFromJWT(r); jwtErr == nil {
			next.ServeHTTP(w, r.WithContext(WithAuthInfo(r.Context(), info)))
			return
		}
		zap.S().Errorw("unauthorized",
			"url", r.URL)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "unauthorized"}`))
	})
}

// adminFromJWT validates an HS256 admin token from the Authorization header
func adminFromJWT(r *http.Request) (auth.Info, error) {
	reqToken := r.Header.Get("Authorization")
	splitToken := strings.Split(reqToken, "Bearer ")
	if len(splitToken) < 2 {
		return nil, fmt.Errorf("missing bearer token")
	}
	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret not set")
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(splitToken[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if scope, _ := claims["scope"].(string); scope != "admin" {
		return nil, fmt.Errorf("not an admin token")
	}
	sub, _ := claims["sub"].(string)
	cpf, _ := claims["cpf"].(string)
	return auth.NewDefaultUser(cpf, sub, []string{models.RoleAdmin}, nil), nil
}

// CreateToken returns a token
func (m MiddlewareDB) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	cpf, _, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "basic auth failed", http.StatusUnauthorized)
		return
	}
	cpf = models.NormalizeCPF(cpf)

	// Fetch user details from the database
	dbResp, err := m.DB.Find(context.Background(), bson.M{"user.cpf": cpf})
	if err != nil || len(dbResp) == 0 {
		http.Error(w, "failed to get user by cpf", http.StatusUnauthorized)
		return
	}

	user := dbResp[0]
	token := uuid.New().String()
	authUser := auth.NewDefaultUser(cpf, user.ID.Hex(), []string{user.Details.Role}, map[string][]string{
		"name":   {user.Details.Name},
		"office": {user.Details.Office},
	})
	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Append(tokenStrategy, token, authUser, r)

	response := map[string]string{
		"token":  token,
		"_id":    user.ID.Hex(),
		"name":   user.Details.Name,
		"role":   user.Details.Role,
		"office": user.Details.Office,
	}

	responseBody, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Write(responseBody)
}

// SetupGoGuardian sets up the go-guardian middleware
func (m MiddlewareDB) SetupGoGuardian() {
	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), time.Hour*24*365*100) // 100 years ttl
	basicStrategy := basic.New(m.ValidateUser, cache)
	tokenStrategy := bearer.New(bearer.NoOpAuthenticate, cache)

	authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// ValidateUser validates a user by CPF and password. Deactivated users are
// rejected without touching the password hash
func (m MiddlewareDB) ValidateUser(ctx context.Context, r *http.Request, username, password string) (auth.Info, error) {
	cpf := models.NormalizeCPF(username)
	if !models.ValidCPF(cpf) {
		return nil, fmt.Errorf("malformed cpf")
	}

	dbResp, err := m.DB.Find(context.Background(), bson.M{"user.cpf": cpf})
	if err != nil {
		return nil, fmt.Errorf("failed to get user by cpf")
	}
	if len(dbResp) == 0 {
		return nil, fmt.Errorf("no matching cpf found")
	}

	user := dbResp[0]
	if !user.Details.Active {
		return nil, fmt.Errorf("user is deactivated")
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(password))
	if err != nil {
		return nil, fmt.Errorf("failed to compare password")
	}

	return auth.NewDefaultUser(cpf, user.ID.Hex(), []string{user.Details.Role}, map[string][]string{
		"name":   {user.Details.Name},
		"office": {user.Details.Office},
	}), nil
}

// RevokeToken revokes a token
func RevokeToken(w http.ResponseWriter, r *http.Request) {
	reqToken := r.Header.Get("Authorization")
	splitToken := strings.Split(reqToken, "Bearer ")
	if len(splitToken) < 2 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "missing bearer token"}`))
		return
	}
	reqToken = splitToken[1]

	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Revoke(tokenStrategy, reqToken, r)
	body := fmt.Sprintf(`{"revoked token": "%s"}`, reqToken)
	w.Write([]byte(body))
}
