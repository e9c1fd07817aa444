package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/camaradigital/frota-api/config"
	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/models"
)

// Vehicle exported for testing purposes
type Vehicle struct {
	DB  databases.VehicleDatabase
	TDB databases.TripDatabase
}

type createVehicleRequest struct {
	Model           string `json:"model"`
	Plate           string `json:"plate"`
	CurrentOdometer int    `json:"currentOdometer"`
}

// CreateVehicleHandler registers a vehicle. The first revision threshold is
// seeded one interval above the starting odometer
func (v Vehicle) CreateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	var req createVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if req.Model == "" || req.Plate == "" {
		config.ErrorStatus("model and plate are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}
	if req.CurrentOdometer < 0 {
		config.ErrorStatus("odometer cannot be negative", http.StatusBadRequest, w, fmt.Errorf("got %d", req.CurrentOdometer))
		return
	}

	vehicle := models.Vehicle{
		ID: primitive.NewObjectID(),
		Details: models.VehicleDetails{
			Model:                req.Model,
			Plate:                strings.ToUpper(strings.TrimSpace(req.Plate)),
			CurrentOdometer:      req.CurrentOdometer,
			NextRevisionOdometer: req.CurrentOdometer + models.RevisionInterval,
			CreatedAt:            primitive.NewDateTimeFromTime(time.Now()),
			UpdatedAt:            primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	_, err := v.DB.InsertOne(r.Context(), vehicle)
	if err != nil {
		config.ErrorStatus("failed to create vehicle", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Vehicle created successfully",
		"id":      vehicle.ID.Hex(),
	})
}

// VehicleHandler returns all vehicles with their derived availability.
// Passing available=true keeps only the vehicles free for checkout
func (v Vehicle) VehicleHandler(w http.ResponseWriter, r *http.Request) {
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v, err: %v", Limit|10, err))
	}
	Page = getPage(Page, r)

	dbResp, err := v.DB.List(r.Context(), bson.M{}, Limit, Page)
	if err != nil {
		config.ErrorStatus("failed to get vehicles", http.StatusNotFound, w, err)
		return
	}

	occupied, err := v.TDB.OpenVehicleIDs(r.Context())
	if err != nil {
		config.ErrorStatus("failed to get open trips", http.StatusInternalServerError, w, err)
		return
	}

	onlyAvailable := r.URL.Query().Get("available") == "true"
	statuses := make([]models.VehicleStatus, 0, len(dbResp))
	for _, vehicle := range dbResp {
		if onlyAvailable && occupied[vehicle.ID] {
			continue
		}
		statuses = append(statuses, models.VehicleStatus{
			Vehicle:     vehicle,
			Occupied:    occupied[vehicle.ID],
			RevisionDue: vehicle.Details.RevisionDue(),
		})
	}

	b, err := json.Marshal(statuses)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// VehicleByIDHandler returns a vehicle by ID
func (v Vehicle) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]

	zap.S().Debugf("vehicle_id: %v", vehicleID)

	vID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := v.DB.FindOne(r.Context(), bson.M{"_id": vID})
	if err != nil {
		config.ErrorStatus("failed to get vehicle by ID", http.StatusNotFound, w, err)
		return
	}

	occupied, err := v.TDB.CountDocuments(r.Context(), bson.M{"trip.vehicleID": vID, "trip.open": true})
	if err != nil {
		config.ErrorStatus("failed to get open trips", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.VehicleStatus{
		Vehicle:     *dbResp,
		Occupied:    occupied > 0,
		RevisionDue: dbResp.Details.RevisionDue(),
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type updateVehicleRequest struct {
	Model           string `json:"model"`
	Plate           string `json:"plate"`
	CurrentOdometer *int   `json:"currentOdometer"`
}

// UpdateVehicleHandler updates a vehicle's details. Sending currentOdometer
// is an explicit administrative correction and bypasses the ratchet
func (v Vehicle) UpdateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]

	vID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{"vehicle.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Model != "" {
		set["vehicle.model"] = req.Model
	}
	if req.Plate != "" {
		set["vehicle.plate"] = strings.ToUpper(strings.TrimSpace(req.Plate))
	}
	if req.CurrentOdometer != nil {
		if *req.CurrentOdometer < 0 {
			config.ErrorStatus("odometer cannot be negative", http.StatusBadRequest, w, fmt.Errorf("got %d", *req.CurrentOdometer))
			return
		}
		set["vehicle.currentOdometer"] = *req.CurrentOdometer
	}

	_, err = v.DB.UpdateOne(r.Context(), bson.M{"_id": vID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update vehicle", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Vehicle updated successfully",
	})
}

// DeleteVehicleHandler deletes a vehicle by ID. Vehicles referenced by any
// trip are kept so the history stays intact
func (v Vehicle) DeleteVehicleHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]

	vID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	count, err := v.TDB.CountDocuments(r.Context(), bson.M{"trip.vehicleID": vID})
	if err != nil {
		config.ErrorStatus("failed to count vehicle trips", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("vehicle has trip history", http.StatusConflict,
			w, fmt.Errorf("vehicle %s is referenced by %d trips", vehicleID, count))
		return
	}

	err = v.DB.DeleteOne(context.Background(), bson.M{"_id": vID})
	if err != nil {
		config.ErrorStatus("failed to delete vehicle", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Vehicle deleted successfully",
	})
}

// ResetRevisionHandler acknowledges a completed revision and pushes the
// threshold one interval past the current odometer
func (v Vehicle) ResetRevisionHandler(w http.ResponseWriter, r *http.Request) {
	vehicleID := mux.Vars(r)["vehicle_id"]

	vID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	vehicle, err := v.DB.FindOne(r.Context(), bson.M{"_id": vID})
	if err != nil {
		config.ErrorStatus("failed to get vehicle by ID", http.StatusNotFound, w, err)
		return
	}

	next := vehicle.Details.CurrentOdometer + models.RevisionInterval
	_, err = v.DB.UpdateOne(r.Context(), bson.M{"_id": vID}, bson.M{"$set": bson.M{
		"vehicle.nextRevisionOdometer": next,
		"vehicle.updatedAt":            primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		config.ErrorStatus("failed to reset revision", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":              "Revision threshold updated",
		"nextRevisionOdometer": next,
	})
}
