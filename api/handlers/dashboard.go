package handlers

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/camaradigital/frota-api/config"
	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/models"
)

// Dashboard exported for testing purposes
type Dashboard struct {
	DB  databases.TripDatabase
	VDB databases.VehicleDatabase
}

type officeUsage struct {
	Office   string  `bson:"_id" json:"office"`
	Trips    int     `bson:"trips" json:"trips"`
	Distance float64 `bson:"distance" json:"distance"`
}

type dashboardVehicle struct {
	models.VehicleStatus
	TotalDistance float64 `json:"totalDistance"`
	TotalTrips    int     `json:"totalTrips"`
}

type dashboardResponse struct {
	OpenTrips         int                `json:"openTrips"`
	TotalVehicles     int                `json:"totalVehicles"`
	AvailableVehicles int                `json:"availableVehicles"`
	RevisionDue       int                `json:"revisionDue"`
	OfficeRanking     []officeUsage      `json:"officeRanking"`
	Vehicles          []dashboardVehicle `json:"vehicles"`
}

// recomputedOdometer returns the odometer implied by the closed-trip
// history when it is ahead of the stored reading
func recomputedOdometer(current int, maxArrival float64) (int, bool) {
	corrected := int(maxArrival)
	if corrected > current {
		return corrected, true
	}
	return current, false
}

// DashboardHandler assembles the administrative overview: fleet
// availability, per-office ranking by distance and per-vehicle usage with
// the revision flags. Everything is recomputed from committed trips on each
// request, including the vehicle odometers, which are nudged back up to the
// highest arrival reading in their closed trips
func (d Dashboard) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	vehicles, err := d.VDB.Find(r.Context(), bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get vehicles", http.StatusNotFound, w, err)
		return
	}

	occupied, err := d.DB.OpenVehicleIDs(r.Context())
	if err != nil {
		config.ErrorStatus("failed to get open trips", http.StatusInternalServerError, w, err)
		return
	}

	var ranking []officeUsage
	err = d.DB.Aggregate(r.Context(), []bson.M{
		{"$match": bson.M{"trip.open": false}},
		{"$group": bson.M{
			"_id":      "$trip.office",
			"trips":    bson.M{"$sum": 1},
			"distance": bson.M{"$sum": bson.M{"$subtract": []string{"$trip.arrivalOdometer", "$trip.departureOdometer"}}},
		}},
		{"$sort": bson.M{"distance": -1}},
	}, &ranking)
	if err != nil {
		config.ErrorStatus("failed to aggregate office usage", http.StatusInternalServerError, w, err)
		return
	}

	var usage []vehicleUsage
	err = d.DB.Aggregate(r.Context(), []bson.M{
		{"$match": bson.M{"trip.open": false}},
		{"$group": bson.M{
			"_id":        "$trip.vehicleID",
			"model":      bson.M{"$first": "$trip.vehicleModel"},
			"plate":      bson.M{"$first": "$trip.vehiclePlate"},
			"trips":      bson.M{"$sum": 1},
			"distance":   bson.M{"$sum": bson.M{"$subtract": []string{"$trip.arrivalOdometer", "$trip.departureOdometer"}}},
			"maxArrival": bson.M{"$max": "$trip.arrivalOdometer"},
		}},
	}, &usage)
	if err != nil {
		config.ErrorStatus("failed to aggregate vehicle usage", http.StatusInternalServerError, w, err)
		return
	}
	usageByVehicle := make(map[primitive.ObjectID]vehicleUsage, len(usage))
	for _, u := range usage {
		usageByVehicle[u.VehicleID] = u
	}

	resp := dashboardResponse{
		TotalVehicles: len(vehicles),
		OpenTrips:     len(occupied),
		OfficeRanking: ranking,
		Vehicles:      make([]dashboardVehicle, 0, len(vehicles)),
	}
	if resp.OfficeRanking == nil {
		resp.OfficeRanking = []officeUsage{}
	}
	for _, vehicle := range vehicles {
		u := usageByVehicle[vehicle.ID]
		if corrected, ok := recomputedOdometer(vehicle.Details.CurrentOdometer, u.MaxArrival); ok {
			// a stored reading behind the trip history means a check-in
			// update was lost, bring the registry back in line
			_, err := d.VDB.UpdateOne(r.Context(), bson.M{"_id": vehicle.ID}, bson.M{
				"$max": bson.M{"vehicle.currentOdometer": corrected},
			})
			if err != nil {
				config.ErrorStatus("failed to recompute vehicle odometer", http.StatusInternalServerError, w, err)
				return
			}
			vehicle.Details.CurrentOdometer = corrected
		}
		status := models.VehicleStatus{
			Vehicle:     vehicle,
			Occupied:    occupied[vehicle.ID],
			RevisionDue: vehicle.Details.RevisionDue(),
		}
		if !status.Occupied {
			resp.AvailableVehicles++
		}
		if status.RevisionDue {
			resp.RevisionDue++
		}
		resp.Vehicles = append(resp.Vehicles, dashboardVehicle{
			VehicleStatus: status,
			TotalDistance: u.Distance,
			TotalTrips:    u.Trips,
		})
	}

	b, err := json.Marshal(resp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
