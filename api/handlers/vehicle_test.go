package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/camaradigital/frota-api/api/handlers"
	"github.com/camaradigital/frota-api/databases/mocks"
	"github.com/camaradigital/frota-api/models"
)

func TestVehicle_VehicleByIDHandlerBadHex(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/vehicle/1234", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"vehicle_id": "1234"})
	req.Header.Set("Authorization", "Bearer abc123")

	v := handlers.Vehicle{DB: &mocks.VehicleDatabase{}}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(v.VehicleByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get objectID from Hex", Error: "the provided hex string is not a valid ObjectID"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestVehicle_VehicleHandlerOccupiedFlags(t *testing.T) {
	free := models.Vehicle{ID: primitive.NewObjectID(), Details: models.VehicleDetails{Plate: "AAA1A11", CurrentOdometer: 500, NextRevisionOdometer: 10500}}
	busy := models.Vehicle{ID: primitive.NewObjectID(), Details: models.VehicleDetails{Plate: "BBB2B22", CurrentOdometer: 12000, NextRevisionOdometer: 11000}}

	vehicleDB := &mocks.VehicleDatabase{}
	vehicleDB.On("List", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.Vehicle{free, busy}, nil)
	tripDB := &mocks.TripDatabase{}
	tripDB.On("OpenVehicleIDs", mock.Anything).Return(map[primitive.ObjectID]bool{busy.ID: true}, nil)

	v := handlers.Vehicle{DB: vehicleDB, TDB: tripDB}

	req, _ := http.NewRequest("GET", "/api/v1/vehicles", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.VehicleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var statuses []models.VehicleStatus
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statuses))
	assert.Len(t, statuses, 2)
	assert.False(t, statuses[0].Occupied)
	assert.False(t, statuses[0].RevisionDue)
	assert.True(t, statuses[1].Occupied)
	assert.True(t, statuses[1].RevisionDue)
}

func TestVehicle_VehicleHandlerOnlyAvailable(t *testing.T) {
	free := models.Vehicle{ID: primitive.NewObjectID(), Details: models.VehicleDetails{Plate: "AAA1A11"}}
	busy := models.Vehicle{ID: primitive.NewObjectID(), Details: models.VehicleDetails{Plate: "BBB2B22"}}

	vehicleDB := &mocks.VehicleDatabase{}
	vehicleDB.On("List", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]models.Vehicle{free, busy}, nil)
	tripDB := &mocks.TripDatabase{}
	tripDB.On("OpenVehicleIDs", mock.Anything).Return(map[primitive.ObjectID]bool{busy.ID: true}, nil)

	v := handlers.Vehicle{DB: vehicleDB, TDB: tripDB}

	req, _ := http.NewRequest("GET", "/api/v1/vehicles?available=true", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.VehicleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var statuses []models.VehicleStatus
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statuses))
	assert.Len(t, statuses, 1)
	assert.Equal(t, "AAA1A11", statuses[0].Details.Plate)
}

func TestVehicle_CreateVehicleHandler(t *testing.T) {
	vehicleDB := &mocks.VehicleDatabase{}
	vehicleDB.On("InsertOne", mock.Anything, mock.MatchedBy(func(v models.Vehicle) bool {
		return v.Details.Plate == "ABC1D23" &&
			v.Details.NextRevisionOdometer == 1000+models.RevisionInterval
	})).Return("inserted-id", nil)

	v := handlers.Vehicle{DB: vehicleDB}

	body, _ := json.Marshal(map[string]interface{}{
		"model":           "Fiat Mobi",
		"plate":           " abc1d23 ",
		"currentOdometer": 1000,
	})
	req, _ := http.NewRequest("POST", "/api/v1/vehicle", bytes.NewBuffer(body))

	rr := httptest.NewRecorder()
	http.HandlerFunc(v.CreateVehicleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	vehicleDB.AssertExpectations(t)
}

func TestVehicle_CreateVehicleHandlerNegativeOdometer(t *testing.T) {
	v := handlers.Vehicle{DB: &mocks.VehicleDatabase{}}

	body, _ := json.Marshal(map[string]interface{}{
		"model":           "Fiat Mobi",
		"plate":           "ABC1D23",
		"currentOdometer": -5,
	})
	req, _ := http.NewRequest("POST", "/api/v1/vehicle", bytes.NewBuffer(body))

	rr := httptest.NewRecorder()
	http.HandlerFunc(v.CreateVehicleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "odometer cannot be negative")
}

func TestVehicle_DeleteVehicleHandlerWithTripHistory(t *testing.T) {
	vID := primitive.NewObjectID()

	tripDB := &mocks.TripDatabase{}
	tripDB.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(7), nil)

	v := handlers.Vehicle{DB: &mocks.VehicleDatabase{}, TDB: tripDB}

	req, _ := http.NewRequest("DELETE", "/api/v1/vehicle/"+vID.Hex(), nil)
	req = mux.SetURLVars(req, map[string]string{"vehicle_id": vID.Hex()})

	rr := httptest.NewRecorder()
	http.HandlerFunc(v.DeleteVehicleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "vehicle has trip history")
}

func TestVehicle_ResetRevisionHandler(t *testing.T) {
	vID := primitive.NewObjectID()

	vehicleDB := &mocks.VehicleDatabase{}
	vehicleDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.Vehicle{
		ID:      vID,
		Details: models.VehicleDetails{CurrentOdometer: 15200, NextRevisionOdometer: 11000},
	}, nil)
	vehicleDB.On("UpdateOne", mock.Anything, mock.Anything, mock.MatchedBy(func(update interface{}) bool {
		b, _ := json.Marshal(update)
		return bytes.Contains(b, []byte(`"vehicle.nextRevisionOdometer":25200`))
	})).Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	v := handlers.Vehicle{DB: vehicleDB}

	req, _ := http.NewRequest("PUT", "/api/v1/vehicle/"+vID.Hex()+"/reset-revision", nil)
	req = mux.SetURLVars(req, map[string]string{"vehicle_id": vID.Hex()})

	rr := httptest.NewRecorder()
	http.HandlerFunc(v.ResetRevisionHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"nextRevisionOdometer":25200`)
	vehicleDB.AssertExpectations(t)
}
