package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/camaradigital/frota-api/api"
	"github.com/camaradigital/frota-api/config"
	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/models"
)

// User exported for testing purposes
type User struct {
	DB  databases.UserDatabase
	TDB databases.TripDatabase
}

type createUserRequest struct {
	Name     string `json:"name"`
	CPF      string `json:"cpf"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Office   string `json:"office"`
}

// CreateUserHandler registers a new driver or admin account
func (u User) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	cpf := models.NormalizeCPF(req.CPF)
	if req.Name == "" || req.Password == "" {
		config.ErrorStatus("name and password are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}
	if !models.ValidCPF(cpf) {
		config.ErrorStatus("cpf must have 11 digits", http.StatusBadRequest, w, fmt.Errorf("malformed cpf: %q", req.CPF))
		return
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleDriver {
		config.ErrorStatus("unknown role", http.StatusBadRequest, w, fmt.Errorf("role %q is not valid", req.Role))
		return
	}
	office := req.Office
	if office == "" {
		office = models.DefaultOffice
	}
	if !models.ValidOffice(office) {
		config.ErrorStatus("unknown office", http.StatusBadRequest, w, fmt.Errorf("office %q is not in the catalog", req.Office))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	user := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Name:      req.Name,
			CPF:       cpf,
			Password:  string(hash),
			Role:      req.Role,
			Active:    true,
			Office:    office,
			CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
			UpdatedAt: primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	_, err = u.DB.InsertOne(r.Context(), user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			config.ErrorStatus("cpf already registered", http.StatusConflict, w, err)
			return
		}
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User created successfully",
		"id":      user.ID.Hex(),
	})
}

// UserHandler returns all users
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v, err: %v", Limit|10, err))
	}
	Page = getPage(Page, r)

	filter := bson.M{}
	if office := r.URL.Query().Get("office"); office != "" {
		filter["user.office"] = office
	}
	if role := r.URL.Query().Get("role"); role != "" {
		filter["user.role"] = role
	}

	dbResp, err := u.DB.List(r.Context(), filter, Limit, Page)
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.User{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UserByIDHandler returns a user by ID
func (u User) UserByIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := u.DB.FindOne(r.Context(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type updateUserRequest struct {
	Name   string `json:"name"`
	CPF    string `json:"cpf"`
	Role   string `json:"role"`
	Office string `json:"office"`
	// Password is optional, empty leaves the stored hash untouched
	Password string `json:"password"`
}

// UpdateUserHandler updates a user's details. A changed CPF is normalized
// and still has to be unique
func (u User) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{"user.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Name != "" {
		set["user.name"] = req.Name
	}
	if req.CPF != "" {
		cpf := models.NormalizeCPF(req.CPF)
		if !models.ValidCPF(cpf) {
			config.ErrorStatus("cpf must have 11 digits", http.StatusBadRequest, w, fmt.Errorf("malformed cpf: %q", req.CPF))
			return
		}
		set["user.cpf"] = cpf
	}
	if req.Role != "" {
		if req.Role != models.RoleAdmin && req.Role != models.RoleDriver {
			config.ErrorStatus("unknown role", http.StatusBadRequest, w, fmt.Errorf("role %q is not valid", req.Role))
			return
		}
		set["user.role"] = req.Role
	}
	if req.Office != "" {
		if !models.ValidOffice(req.Office) {
			config.ErrorStatus("unknown office", http.StatusBadRequest, w, fmt.Errorf("office %q is not in the catalog", req.Office))
			return
		}
		set["user.office"] = req.Office
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
			return
		}
		set["user.password"] = string(hash)
	}

	_, err = u.DB.UpdateOne(r.Context(), bson.M{"_id": uID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			config.ErrorStatus("cpf already registered", http.StatusConflict, w, err)
			return
		}
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User updated successfully",
	})
}

// ToggleUserActiveHandler flips the active flag. Deactivated users keep
// their trip history but can no longer authenticate. Admins cannot toggle
// their own account, that would lock the last admin out
func (u User) ToggleUserActiveHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	if info, ok := api.AuthInfoFrom(r.Context()); ok && info.ID() == userID {
		config.ErrorStatus("cannot toggle your own account", http.StatusConflict,
			w, fmt.Errorf("user %s tried to toggle itself", userID))
		return
	}

	user, err := u.DB.FindOne(r.Context(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	_, err = u.DB.UpdateOne(r.Context(), bson.M{"_id": uID}, bson.M{"$set": bson.M{
		"user.active":    !user.Details.Active,
		"user.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		config.ErrorStatus("failed to toggle user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User toggled successfully",
		"active":  !user.Details.Active,
	})
}

// DeleteUserHandler deletes a user by ID. Users referenced by any trip are
// kept so the history stays attributable, deactivate them instead
func (u User) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	count, err := u.TDB.CountDocuments(r.Context(), bson.M{"trip.userID": uID})
	if err != nil {
		config.ErrorStatus("failed to count user trips", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("user has trip history, deactivate instead", http.StatusConflict,
			w, fmt.Errorf("user %s is referenced by %d trips", userID, count))
		return
	}

	err = u.DB.DeleteOne(context.Background(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to delete user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User deleted successfully",
	})
}
