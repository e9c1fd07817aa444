package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/camaradigital/frota-api/config"
	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/models"
	"github.com/camaradigital/frota-api/reports"
)

// Report exported for testing purposes
type Report struct {
	DB  databases.TripDatabase
	IDB databases.IncidentPhotoDatabase
}

// vehicleUsage is one row of the per-vehicle aggregation. MaxArrival is
// only produced by the dashboard pipeline, the history one leaves it zero
type vehicleUsage struct {
	VehicleID  primitive.ObjectID `bson:"_id" json:"vehicleID"`
	Model      string             `bson:"model" json:"model"`
	Plate      string             `bson:"plate" json:"plate"`
	Trips      int                `bson:"trips" json:"trips"`
	Distance   float64            `bson:"distance" json:"distance"`
	MaxArrival float64            `bson:"maxArrival" json:"-"`
}

type historyResponse struct {
	Trips                []models.Trip  `json:"trips"`
	PerVehicle           []vehicleUsage `json:"perVehicle"`
	TotalTrips           int            `json:"totalTrips"`
	TotalDistance        float64        `json:"totalDistance"`
	NegativeDistanceRows int            `json:"negativeDistanceRows"`
}

// historyFilter builds the trip filter from start, end, office and
// vehicle_id query parameters. The end date is inclusive, a trip leaving at
// 18:00 on the end day still belongs to the report
func historyFilter(r *http.Request) (bson.M, error) {
	filter := bson.M{}

	dateRange := bson.M{}
	if start := r.URL.Query().Get("start"); start != "" {
		from, err := time.Parse("2006-01-02", start)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q", start)
		}
		dateRange["$gte"] = from
	}
	if end := r.URL.Query().Get("end"); end != "" {
		to, err := time.Parse("2006-01-02", end)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q", end)
		}
		dateRange["$lte"] = to.Add(24*time.Hour - time.Second)
	}
	if len(dateRange) > 0 {
		filter["trip.departureAt"] = dateRange
	}

	if office := r.URL.Query().Get("office"); office != "" {
		filter["trip.office"] = office
	}
	if vehicleID := r.URL.Query().Get("vehicle_id"); vehicleID != "" {
		vID, err := primitive.ObjectIDFromHex(vehicleID)
		if err != nil {
			return nil, fmt.Errorf("invalid vehicle_id %q", vehicleID)
		}
		filter["trip.vehicleID"] = vID
	}
	return filter, nil
}

// HistoryHandler returns the filtered trip history with per-vehicle totals.
// Rows that closed with a negative distance are counted, not hidden
func (rep Report) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		config.ErrorStatus("invalid report filters", http.StatusBadRequest, w, err)
		return
	}

	trips, err := rep.DB.Find(r.Context(), filter)
	if err != nil {
		config.ErrorStatus("failed to get trips", http.StatusNotFound, w, err)
		return
	}
	if len(trips) == 0 {
		trips = []models.Trip{}
	}

	resp := historyResponse{
		Trips:      trips,
		PerVehicle: []vehicleUsage{},
		TotalTrips: len(trips),
	}
	for _, trip := range trips {
		d, ok := trip.Details.Distance()
		if !ok {
			continue
		}
		resp.TotalDistance += d
		if d < 0 {
			resp.NegativeDistanceRows++
		}
	}
	if resp.NegativeDistanceRows > 0 {
		zap.S().Warnw("report contains negative distance rows",
			"rows", resp.NegativeDistanceRows)
	}

	closedFilter := bson.M{"trip.open": false}
	for k, v := range filter {
		closedFilter[k] = v
	}
	pipeline := []bson.M{
		{"$match": closedFilter},
		{"$group": bson.M{
			"_id":      "$trip.vehicleID",
			"model":    bson.M{"$first": "$trip.vehicleModel"},
			"plate":    bson.M{"$first": "$trip.vehiclePlate"},
			"trips":    bson.M{"$sum": 1},
			"distance": bson.M{"$sum": bson.M{"$subtract": []string{"$trip.arrivalOdometer", "$trip.departureOdometer"}}},
		}},
		{"$sort": bson.M{"distance": -1}},
	}
	if err := rep.DB.Aggregate(r.Context(), pipeline, &resp.PerVehicle); err != nil {
		config.ErrorStatus("failed to aggregate vehicle usage", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(resp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// IncidentsHandler returns incident photos, optionally narrowed to a trip
func (rep Report) IncidentsHandler(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if tripID := r.URL.Query().Get("trip_id"); tripID != "" {
		tID, err := primitive.ObjectIDFromHex(tripID)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		filter["incidentPhoto.tripID"] = tID
	}

	dbResp, err := rep.IDB.Find(r.Context(), filter)
	if err != nil {
		config.ErrorStatus("failed to get incident photos", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.IncidentPhoto{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ExportHandler streams the filtered history as a spreadsheet attachment
func (rep Report) ExportHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		config.ErrorStatus("invalid report filters", http.StatusBadRequest, w, err)
		return
	}

	trips, err := rep.DB.Find(r.Context(), filter)
	if err != nil {
		config.ErrorStatus("failed to get trips", http.StatusNotFound, w, err)
		return
	}

	now := time.Now()
	f, err := reports.BuildTripReport(trips, now)
	if err != nil {
		config.ErrorStatus("failed to build report", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reports.Filename(now)))
	if err := f.Write(w); err != nil {
		zap.S().Errorw("failed to stream report", "error", err)
	}
}
