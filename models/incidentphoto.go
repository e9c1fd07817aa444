package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// IncidentPhoto holds the structure for the incidentPhotos collection in
// mongo. Incident photos are child records of a trip, created only during
// check-in
type IncidentPhoto struct {
	ID      primitive.ObjectID   `json:"_id" bson:"_id"`
	Details IncidentPhotoDetails `json:"incidentPhoto" bson:"incidentPhoto"`
	Version int32                `json:"__v" bson:"__v"`
}

// IncidentPhotoDetails holds the structure for the inner incident photo
// structure as defined in the incidentPhotos collection in mongo
type IncidentPhotoDetails struct {
	TripID    primitive.ObjectID `json:"tripID" bson:"tripID"`
	File      string             `json:"file" bson:"file"`
	CreatedAt interface{}        `json:"createdAt" bson:"createdAt"`
}
