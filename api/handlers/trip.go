package handlers

import (
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

	"github.com/camaradigital/frota-api/api"
	"github.com/camaradigital/frota-api/config"
	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/models"
	"github.com/camaradigital/frota-api/photos"
)

const maxUploadMemory = 32 << 20

// Trip exported for testing purposes
type Trip struct {
	DB     databases.TripDatabase
	VDB    databases.VehicleDatabase
	UDB    databases.UserDatabase
	IDB    databases.IncidentPhotoDatabase
	Photos *photos.Store
}

// CheckoutHandler opens a trip for the authenticated driver. The vehicle,
// driver and office are snapshotted into the trip document so later edits
// to the registries never rewrite history.
//
// The pre-check against open trips only exists for a friendly error, the
// unique index on open trips is what actually rejects a concurrent second
// checkout of the same vehicle
func (t Trip) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}

	info, ok := api.AuthInfoFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, fmt.Errorf("no auth info in context"))
		return
	}
	userID, err := primitive.ObjectIDFromHex(info.ID())
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	user, err := t.UDB.FindOne(r.Context(), bson.M{"_id": userID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusUnauthorized, w, err)
		return
	}

	vID, err := primitive.ObjectIDFromHex(r.FormValue("vehicle_id"))
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	vehicle, err := t.VDB.FindOne(r.Context(), bson.M{"_id": vID})
	if err != nil {
		config.ErrorStatus("failed to get vehicle by ID", http.StatusNotFound, w, err)
		return
	}

	openCount, err := t.DB.CountDocuments(r.Context(), bson.M{"trip.vehicleID": vID, "trip.open": true})
	if err != nil {
		config.ErrorStatus("failed to get open trips", http.StatusInternalServerError, w, err)
		return
	}
	if openCount > 0 {
		config.ErrorStatus("vehicle is already checked out", http.StatusConflict,
			w, fmt.Errorf("vehicle %s has an open trip", vID.Hex()))
		return
	}

	departureOdometer := float64(vehicle.Details.CurrentOdometer)
	if raw := r.FormValue("departure_odometer"); raw != "" {
		departureOdometer, err = strconv.ParseFloat(raw, 64)
		if err != nil || departureOdometer < 0 {
			config.ErrorStatus("departure odometer must be a non-negative number", http.StatusBadRequest,
				w, fmt.Errorf("got %q", raw))
			return
		}
	}

	destination := r.FormValue("destination")
	if destination == "" {
		config.ErrorStatus("destination is required", http.StatusBadRequest, w, fmt.Errorf("missing destination"))
		return
	}

	var departurePhoto string
	if fhs := r.MultipartForm.File["photo"]; len(fhs) > 0 {
		departurePhoto = t.Photos.Save(fhs[0], photos.PrefixDeparture)
	}

	trip := models.Trip{
		ID: primitive.NewObjectID(),
		Details: models.TripDetails{
			UserID:            user.ID,
			Office:            user.Details.Office,
			DriverName:        user.Details.Name,
			VehicleID:         vehicle.ID,
			VehicleModel:      vehicle.Details.Model,
			VehiclePlate:      vehicle.Details.Plate,
			DepartureAt:       time.Now(),
			DepartureOdometer: departureOdometer,
			DeparturePhoto:    departurePhoto,
			Destination:       destination,
			Notes:             r.FormValue("notes"),
			Open:              true,
		},
	}

	_, err = t.DB.InsertOne(r.Context(), trip)
	if err != nil {
		// lost the race to another checkout between the pre-check and here
		if mongo.IsDuplicateKeyError(err) {
			config.ErrorStatus("vehicle is already checked out", http.StatusConflict, w, err)
			return
		}
		config.ErrorStatus("failed to create trip", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("trip opened",
		"trip", trip.ID.Hex(),
		"vehicle", vehicle.Details.Plate,
		"driver", user.Details.Name)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":     "Trip opened successfully",
		"id":          trip.ID.Hex(),
		"revisionDue": vehicle.Details.RevisionDue(),
	})
}

// CheckinHandler closes an open trip. The close is a single filtered
// find-and-update, so of two concurrent check-ins exactly one wins while the
// other is told the trip is no longer open
func (t Trip) CheckinHandler(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["trip_id"]

	tID, err := primitive.ObjectIDFromHex(tripID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}

	arrivalOdometer, err := strconv.ParseFloat(r.FormValue("arrival_odometer"), 64)
	if err != nil || arrivalOdometer < 0 {
		config.ErrorStatus("arrival odometer must be a non-negative number", http.StatusBadRequest,
			w, fmt.Errorf("got %q", r.FormValue("arrival_odometer")))
		return
	}

	var arrivalPhoto string
	if fhs := r.MultipartForm.File["photo"]; len(fhs) > 0 {
		arrivalPhoto = t.Photos.Save(fhs[0], photos.PrefixArrival)
	}

	now := time.Now()
	update := bson.M{"$set": bson.M{
		"trip.arrivalAt":       now,
		"trip.arrivalOdometer": arrivalOdometer,
		"trip.arrivalPhoto":    arrivalPhoto,
		"trip.open":            false,
	}}
	if notes := r.FormValue("notes"); notes != "" {
		update["$set"].(bson.M)["trip.notes"] = notes
	}

	trip, err := t.DB.CloseOne(r.Context(), bson.M{"_id": tID, "trip.open": true}, update)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			config.ErrorStatus("trip is not open", http.StatusConflict,
				w, fmt.Errorf("trip %s is already closed or does not exist", tripID))
			return
		}
		config.ErrorStatus("failed to close trip", http.StatusInternalServerError, w, err)
		return
	}

	// $max keeps administrative corrections above a stale arrival reading
	_, err = t.VDB.UpdateOne(r.Context(), bson.M{"_id": trip.Details.VehicleID}, bson.M{
		"$max": bson.M{"vehicle.currentOdometer": int(arrivalOdometer)},
		"$set": bson.M{"vehicle.updatedAt": primitive.NewDateTimeFromTime(now)},
	})
	if err != nil {
		config.ErrorStatus("failed to update vehicle odometer", http.StatusInternalServerError, w, err)
		return
	}

	incidentFiles := r.MultipartForm.File["incident_photos"]
	savedIncidents := make([]string, 0, len(incidentFiles))
	for _, fh := range incidentFiles {
		name := t.Photos.Save(fh, photos.PrefixIncident)
		if name == "" {
			continue
		}
		_, err := t.IDB.InsertOne(r.Context(), models.IncidentPhoto{
			ID: primitive.NewObjectID(),
			Details: models.IncidentPhotoDetails{
				TripID:    trip.ID,
				File:      name,
				CreatedAt: now,
			},
		})
		if err != nil {
			config.ErrorStatus("failed to record incident photo", http.StatusInternalServerError, w, err)
			return
		}
		savedIncidents = append(savedIncidents, name)
	}

	distance, _ := trip.Details.Distance()
	if distance < 0 {
		zap.S().Warnw("trip closed with negative distance",
			"trip", trip.ID.Hex(),
			"departureOdometer", trip.Details.DepartureOdometer,
			"arrivalOdometer", arrivalOdometer)
	}

	zap.S().Infow("trip closed",
		"trip", trip.ID.Hex(),
		"vehicle", trip.Details.VehiclePlate,
		"distance", distance)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":          "Trip closed successfully",
		"id":               trip.ID.Hex(),
		"distance":         distance,
		"negativeDistance": distance < 0,
		"incidentPhotos":   savedIncidents,
	})
}

// OpenTripsHandler returns all open trips, newest departure first
func (t Trip) OpenTripsHandler(w http.ResponseWriter, r *http.Request) {
	dbResp, err := t.DB.FindOpen(r.Context())
	if err != nil {
		config.ErrorStatus("failed to get open trips", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Trip{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// TripByIDHandler returns a trip by ID
func (t Trip) TripByIDHandler(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["trip_id"]

	tID, err := primitive.ObjectIDFromHex(tripID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := t.DB.FindOne(r.Context(), bson.M{"_id": tID})
	if err != nil {
		config.ErrorStatus("failed to get trip by ID", http.StatusNotFound, w, err)
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

type updateTripRequest struct {
	Destination       string   `json:"destination"`
	Notes             string   `json:"notes"`
	DepartureOdometer *float64 `json:"departureOdometer"`
	ArrivalOdometer   *float64 `json:"arrivalOdometer"`
}

// UpdateTripHandler lets an administrator correct a trip's free-text fields
// and odometer readings. The arrival odometer only exists on closed trips,
// editing it on an open trip is rejected. Timestamps are append-only
func (t Trip) UpdateTripHandler(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["trip_id"]

	tID, err := primitive.ObjectIDFromHex(tripID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{}
	if req.Destination != "" {
		set["trip.destination"] = req.Destination
	}
	if req.Notes != "" {
		set["trip.notes"] = req.Notes
	}
	if req.DepartureOdometer != nil {
		if *req.DepartureOdometer < 0 {
			config.ErrorStatus("departure odometer must be a non-negative number", http.StatusBadRequest,
				w, fmt.Errorf("got %v", *req.DepartureOdometer))
			return
		}
		set["trip.departureOdometer"] = *req.DepartureOdometer
	}
	if req.ArrivalOdometer != nil {
		if *req.ArrivalOdometer < 0 {
			config.ErrorStatus("arrival odometer must be a non-negative number", http.StatusBadRequest,
				w, fmt.Errorf("got %v", *req.ArrivalOdometer))
			return
		}
		set["trip.arrivalOdometer"] = *req.ArrivalOdometer
	}
	if len(set) == 0 {
		config.ErrorStatus("nothing to update", http.StatusBadRequest, w, fmt.Errorf("empty update"))
		return
	}

	if req.ArrivalOdometer != nil {
		trip, err := t.DB.FindOne(r.Context(), bson.M{"_id": tID})
		if err != nil {
			config.ErrorStatus("failed to get trip by ID", http.StatusNotFound, w, err)
			return
		}
		if trip.Details.Open {
			config.ErrorStatus("trip is still open", http.StatusConflict,
				w, fmt.Errorf("trip %s has no arrival to correct", tripID))
			return
		}
	}

	_, err = t.DB.UpdateOne(r.Context(), bson.M{"_id": tID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update trip", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Trip updated successfully",
	})
}
