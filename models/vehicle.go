package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// RevisionInterval is how many kilometers a vehicle runs between
// scheduled revisions
const RevisionInterval = 10000

// Vehicle holds the structure for the vehicle collection in mongo
type Vehicle struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details VehicleDetails     `json:"vehicle" bson:"vehicle"`
	Version int32              `json:"__v" bson:"__v"`
}

// VehicleDetails holds the structure for the inner vehicle structure as
// defined in the vehicle collection in mongo
type VehicleDetails struct {
	Model                string      `json:"model" bson:"model"`
	Plate                string      `json:"plate" bson:"plate"`
	CurrentOdometer      int         `json:"currentOdometer" bson:"currentOdometer"`
	NextRevisionOdometer int         `json:"nextRevisionOdometer" bson:"nextRevisionOdometer"`
	CreatedAt            interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt            interface{} `json:"updatedAt" bson:"updatedAt"`
}

// RevisionDue reports whether the vehicle has reached its next-revision
// threshold. Purely advisory
func (d VehicleDetails) RevisionDue() bool {
	return d.CurrentOdometer >= d.NextRevisionOdometer
}

// VehicleStatus is a vehicle plus its derived availability, as returned by
// the vehicle listing consumed by the checkout form
type VehicleStatus struct {
	Vehicle
	Occupied    bool `json:"occupied"`
	RevisionDue bool `json:"revisionDue"`
}
