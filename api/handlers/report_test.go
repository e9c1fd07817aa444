package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/camaradigital/frota-api/api/handlers"
	"github.com/camaradigital/frota-api/databases/mocks"
	"github.com/camaradigital/frota-api/models"
)

func reportTrip(office string, departure, arrival float64, departureAt time.Time) models.Trip {
	arrivalAt := departureAt.Add(3 * time.Hour)
	return models.Trip{
		ID: primitive.NewObjectID(),
		Details: models.TripDetails{
			Office:            office,
			VehicleModel:      "Fiat Mobi",
			VehiclePlate:      "ABC1D23",
			DepartureAt:       departureAt,
			DepartureOdometer: departure,
			ArrivalAt:         &arrivalAt,
			ArrivalOdometer:   &arrival,
			Open:              false,
		},
	}
}

func TestReport_HistoryHandlerFiltersByOfficeAndDateRange(t *testing.T) {
	jan15 := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	tripDB := &mocks.TripDatabase{}
	tripDB.On("Find", mock.Anything, mock.MatchedBy(func(filter interface{}) bool {
		f, ok := filter.(bson.M)
		if !ok || f["trip.office"] != "Gabinete - André Logos" {
			return false
		}
		dateRange, ok := f["trip.departureAt"].(bson.M)
		if !ok {
			return false
		}
		// the end date is inclusive through the last second of the day
		return dateRange["$gte"].(time.Time).Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) &&
			dateRange["$lte"].(time.Time).Equal(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC))
	})).Return([]models.Trip{
		reportTrip("Gabinete - André Logos", 1000, 1050, jan15),
		reportTrip("Gabinete - André Logos", 1050, 1040, jan15.Add(24*time.Hour)),
	}, nil)
	tripDB.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rep := handlers.Report{DB: tripDB}

	req, _ := http.NewRequest("GET", "/api/v1/report/history?start=2024-01-01&end=2024-01-31&office=Gabinete+-+Andr%C3%A9+Logos", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.HistoryHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		TotalTrips           int     `json:"totalTrips"`
		TotalDistance        float64 `json:"totalDistance"`
		NegativeDistanceRows int     `json:"negativeDistanceRows"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalTrips)
	assert.Equal(t, 40.0, resp.TotalDistance)
	assert.Equal(t, 1, resp.NegativeDistanceRows)
	tripDB.AssertExpectations(t)
}

func TestReport_HistoryHandlerInvalidDate(t *testing.T) {
	rep := handlers.Report{DB: &mocks.TripDatabase{}}

	req, _ := http.NewRequest("GET", "/api/v1/report/history?start=15-01-2024", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.HistoryHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid report filters")
}

func TestReport_ExportHandler(t *testing.T) {
	jan15 := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	tripDB := &mocks.TripDatabase{}
	tripDB.On("Find", mock.Anything, mock.Anything).Return([]models.Trip{
		reportTrip(models.DefaultOffice, 1000, 1050, jan15),
	}, nil)

	rep := handlers.Report{DB: tripDB}

	req, _ := http.NewRequest("GET", "/api/v1/report/export", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.ExportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment; filename=")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Relatorio_Frota_")
	// xlsx files are zip archives
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")))
}

func TestReport_IncidentsHandlerByTrip(t *testing.T) {
	tripID := primitive.NewObjectID()

	incidentDB := &mocks.IncidentPhotoDatabase{}
	incidentDB.On("Find", mock.Anything, bson.M{"incidentPhoto.tripID": tripID}).Return([]models.IncidentPhoto{
		{ID: primitive.NewObjectID(), Details: models.IncidentPhotoDetails{TripID: tripID, File: "O_20240115_abc.jpg"}},
	}, nil)

	rep := handlers.Report{IDB: incidentDB}

	req, _ := http.NewRequest("GET", "/api/v1/report/incidents?trip_id="+tripID.Hex(), nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.IncidentsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "O_20240115_abc.jpg")
	incidentDB.AssertExpectations(t)
}
