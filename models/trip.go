package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trip holds the structure for the trip collection in mongo
type Trip struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details TripDetails        `json:"trip" bson:"trip"`
	Version int32              `json:"__v" bson:"__v"`
}

// TripDetails holds the structure for the inner trip structure as defined
// in the trip collection in mongo.
//
// Office, DriverName, VehicleModel and VehiclePlate are snapshotted at
// checkout time so later edits to the user or vehicle registries do not
// retroactively alter historical reports.
//
// Open is kept in lockstep with the nullable arrival fields: it exists so
// the partial unique index on {trip.vehicleID, trip.open: true} can enforce
// at most one open trip per vehicle at the storage layer.
type TripDetails struct {
	UserID            primitive.ObjectID `json:"userID" bson:"userID"`
	Office            string             `json:"office" bson:"office"`
	DriverName        string             `json:"driverName" bson:"driverName"`
	VehicleID         primitive.ObjectID `json:"vehicleID" bson:"vehicleID"`
	VehicleModel      string             `json:"vehicleModel" bson:"vehicleModel"`
	VehiclePlate      string             `json:"vehiclePlate" bson:"vehiclePlate"`
	DepartureAt       time.Time          `json:"departureAt" bson:"departureAt"`
	DepartureOdometer float64            `json:"departureOdometer" bson:"departureOdometer"`
	DeparturePhoto    string             `json:"departurePhoto" bson:"departurePhoto"`
	ArrivalAt         *time.Time         `json:"arrivalAt" bson:"arrivalAt"`
	ArrivalOdometer   *float64           `json:"arrivalOdometer" bson:"arrivalOdometer"`
	ArrivalPhoto      string             `json:"arrivalPhoto" bson:"arrivalPhoto"`
	Destination       string             `json:"destination" bson:"destination"`
	Notes             string             `json:"notes" bson:"notes"`
	Open              bool               `json:"open" bson:"open"`
}

// IsOpen reports whether the trip is still checked out. A trip is open iff
// its arrival odometer and arrival timestamp are both null
func (d TripDetails) IsOpen() bool {
	return d.ArrivalOdometer == nil && d.ArrivalAt == nil
}

// Distance returns arrival minus departure odometer for a closed trip.
// The second return is false while the trip is open. The value is signed:
// a bad arrival entry below the departure reading yields a negative
// distance, which reporting surfaces as a data-quality warning rather
// than clamping
func (d TripDetails) Distance() (float64, bool) {
	if d.ArrivalOdometer == nil {
		return 0, false
	}
	return *d.ArrivalOdometer - d.DepartureOdometer, true
}
