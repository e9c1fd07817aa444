package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/camaradigital/frota-api/databases/mocks"
	"github.com/camaradigital/frota-api/models"
)

func TestDashboard_DashboardHandler(t *testing.T) {
	free := models.Vehicle{ID: primitive.NewObjectID(), Details: models.VehicleDetails{Model: "Fiat Mobi", Plate: "AAA1A11", CurrentOdometer: 500, NextRevisionOdometer: 10500}}
	busy := models.Vehicle{ID: primitive.NewObjectID(), Details: models.VehicleDetails{Model: "VW Gol", Plate: "BBB2B22", CurrentOdometer: 12000, NextRevisionOdometer: 11000}}

	vehicleDB := &mocks.VehicleDatabase{}
	vehicleDB.On("Find", mock.Anything, bson.M{}).Return([]models.Vehicle{free, busy}, nil)

	tripDB := &mocks.TripDatabase{}
	tripDB.On("OpenVehicleIDs", mock.Anything).Return(map[primitive.ObjectID]bool{busy.ID: true}, nil)
	tripDB.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	d := Dashboard{DB: tripDB, VDB: vehicleDB}

	req, _ := http.NewRequest("GET", "/api/v1/admin/dashboard", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(d.DashboardHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		OpenTrips         int `json:"openTrips"`
		TotalVehicles     int `json:"totalVehicles"`
		AvailableVehicles int `json:"availableVehicles"`
		RevisionDue       int `json:"revisionDue"`
		Vehicles          []struct {
			Occupied    bool `json:"occupied"`
			RevisionDue bool `json:"revisionDue"`
		} `json:"vehicles"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.OpenTrips)
	assert.Equal(t, 2, resp.TotalVehicles)
	assert.Equal(t, 1, resp.AvailableVehicles)
	assert.Equal(t, 1, resp.RevisionDue)
	assert.Len(t, resp.Vehicles, 2)
	assert.False(t, resp.Vehicles[0].Occupied)
	assert.True(t, resp.Vehicles[1].Occupied)
	assert.True(t, resp.Vehicles[1].RevisionDue)
}

func TestDashboard_DashboardHandlerRecomputesOdometer(t *testing.T) {
	stale := models.Vehicle{ID: primitive.NewObjectID(), Details: models.VehicleDetails{Model: "Fiat Mobi", Plate: "AAA1A11", CurrentOdometer: 900, NextRevisionOdometer: 10900}}

	vehicleDB := &mocks.VehicleDatabase{}
	vehicleDB.On("Find", mock.Anything, bson.M{}).Return([]models.Vehicle{stale}, nil)
	vehicleDB.On("UpdateOne", mock.Anything, mock.Anything, mock.MatchedBy(func(update interface{}) bool {
		b, _ := json.Marshal(update)
		return bytes.Contains(b, []byte(`"$max"`)) && bytes.Contains(b, []byte(`"vehicle.currentOdometer":1000`))
	})).Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	tripDB := &mocks.TripDatabase{}
	tripDB.On("OpenVehicleIDs", mock.Anything).Return(map[primitive.ObjectID]bool{}, nil)
	tripDB.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		if out, ok := args.Get(2).(*[]vehicleUsage); ok {
			*out = []vehicleUsage{{VehicleID: stale.ID, Model: "Fiat Mobi", Plate: "AAA1A11", Trips: 2, Distance: 100, MaxArrival: 1000}}
		}
	})

	d := Dashboard{DB: tripDB, VDB: vehicleDB}

	req, _ := http.NewRequest("GET", "/api/v1/admin/dashboard", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(d.DashboardHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"currentOdometer":1000`)
	vehicleDB.AssertExpectations(t)
}

func TestRecomputedOdometer(t *testing.T) {
	corrected, ok := recomputedOdometer(900, 1000)
	assert.True(t, ok)
	assert.Equal(t, 1000, corrected)

	// registry already ahead, an admin correction must not be undone
	corrected, ok = recomputedOdometer(1200, 1000)
	assert.False(t, ok)
	assert.Equal(t, 1200, corrected)

	// no closed trips leaves the reading alone
	_, ok = recomputedOdometer(900, 0)
	assert.False(t, ok)
}
