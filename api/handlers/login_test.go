package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/camaradigital/frota-api/api/handlers"
	"github.com/camaradigital/frota-api/databases/mocks"
	"github.com/camaradigital/frota-api/models"
)

func loginBody(t *testing.T, cpf, password string) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(map[string]string{"cpf": cpf, "password": password})
	assert.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestLogin_AdminLoginHandler(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	adminID := primitive.NewObjectID()
	userDB := &mocks.UserDatabase{}
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.User{
		ID: adminID,
		Details: models.UserDetails{
			Name:     "Carla Admin",
			CPF:      "52998224725",
			Password: string(hash),
			Role:     models.RoleAdmin,
			Active:   true,
			Office:   models.DefaultOffice,
		},
	}, nil)

	h := handlers.Login{DB: userDB}

	req, _ := http.NewRequest("POST", "/api/v1/auth/admin-login", loginBody(t, "529.982.247-25", "s3cret"))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.AdminLoginHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Token string `json:"token"`
		Admin struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"admin"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, adminID.Hex(), resp.Admin.ID)
	assert.Equal(t, "Carla Admin", resp.Admin.Name)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(resp.Token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	assert.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "admin", claims["scope"])
	assert.Equal(t, adminID.Hex(), claims["sub"])
}

func TestLogin_AdminLoginHandlerWrongPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	userDB := &mocks.UserDatabase{}
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.User{
		Details: models.UserDetails{Password: string(hash), Role: models.RoleAdmin, Active: true},
	}, nil)

	h := handlers.Login{DB: userDB}

	req, _ := http.NewRequest("POST", "/api/v1/auth/admin-login", loginBody(t, "52998224725", "wrong"))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.AdminLoginHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_CREDENTIALS")
}

func TestLogin_AdminLoginHandlerUnknownAdmin(t *testing.T) {
	userDB := &mocks.UserDatabase{}
	userDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	h := handlers.Login{DB: userDB}

	req, _ := http.NewRequest("POST", "/api/v1/auth/admin-login", loginBody(t, "52998224725", "s3cret"))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.AdminLoginHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_AdminLoginHandlerMalformedCPF(t *testing.T) {
	h := handlers.Login{DB: &mocks.UserDatabase{}}

	req, _ := http.NewRequest("POST", "/api/v1/auth/admin-login", loginBody(t, "12", "s3cret"))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.AdminLoginHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
