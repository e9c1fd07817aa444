package databases

// go generate: mockery --name TripDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/camaradigital/frota-api/models"
)

const tripName = "trips"

// TripDatabase contains the methods to use with the trip database.
//
// A vehicle is occupied exactly when it has an open trip. OpenVehicleIDs
// and the open-trip filters below are the single implementation site for
// that derived state, and the partial unique index created by EnsureIndexes
// enforces at most one open trip per vehicle at the storage layer.
type TripDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Trip, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Trip, error)
	InsertOne(ctx context.Context, trip models.Trip) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
	CloseOne(ctx context.Context, filter interface{}, update interface{}) (*models.Trip, error)
	Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error
	FindOpen(ctx context.Context) ([]models.Trip, error)
	OpenVehicleIDs(ctx context.Context) (map[primitive.ObjectID]bool, error)
	EnsureIndexes(ctx context.Context) error
}

type tripDatabase struct {
	db DatabaseHelper
}

// NewTripDatabase initializes a new instance of trip database with the provided db connection
func NewTripDatabase(db DatabaseHelper) TripDatabase {
	return &tripDatabase{
		db: db,
	}
}

func (t *tripDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Trip, error) {
	trip := &models.Trip{}
	err := t.db.Collection(tripName).FindOne(ctx, filter).Decode(&trip)
	if err != nil {
		return nil, err
	}
	return trip, nil
}

func (t *tripDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Trip, error) {
	var trips []models.Trip
	cursor, err := t.db.Collection(tripName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&trips)
	if err != nil {
		return nil, err
	}
	return trips, nil
}

func (t *tripDatabase) InsertOne(ctx context.Context, trip models.Trip) (interface{}, error) {
	res, err := t.db.Collection(tripName).InsertOne(ctx, trip)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (t *tripDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	return t.db.Collection(tripName).UpdateOne(ctx, filter, update)
}

func (t *tripDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return t.db.Collection(tripName).CountDocuments(ctx, filter)
}

// CloseOne runs a FindOneAndUpdate returning the post-update document, so
// setting the arrival fields and flipping open to false happens in one
// atomic step. With a filter of {_id, "trip.open": true} a second close of
// the same trip matches nothing and surfaces mongo.ErrNoDocuments
func (t *tripDatabase) CloseOne(ctx context.Context, filter interface{}, update interface{}) (*models.Trip, error) {
	trip := &models.Trip{}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := t.db.Collection(tripName).FindOneAndUpdate(ctx, filter, update, opts).Decode(&trip)
	if err != nil {
		return nil, err
	}
	return trip, nil
}

func (t *tripDatabase) Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error {
	cursor, err := t.db.Collection(tripName).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cursor.Decode(results)
}

// FindOpen returns all open trips, newest departure first
func (t *tripDatabase) FindOpen(ctx context.Context) ([]models.Trip, error) {
	opts := options.Find().SetSort(bson.D{{Key: "trip.departureAt", Value: -1}})
	return t.Find(ctx, bson.M{"trip.open": true}, opts)
}

// OpenVehicleIDs recomputes the set of currently occupied vehicles from
// committed state. Callers must not cache the result across requests
func (t *tripDatabase) OpenVehicleIDs(ctx context.Context) (map[primitive.ObjectID]bool, error) {
	trips, err := t.Find(ctx, bson.M{"trip.open": true})
	if err != nil {
		return nil, err
	}
	occupied := make(map[primitive.ObjectID]bool, len(trips))
	for _, trip := range trips {
		occupied[trip.Details.VehicleID] = true
	}
	return occupied, nil
}

// EnsureIndexes creates the partial unique index that rejects a second open
// trip for the same vehicle at commit time, closing the check-then-act race
// in the checkout path
func (t *tripDatabase) EnsureIndexes(ctx context.Context) error {
	_, err := t.db.Collection(tripName).CreateIndex(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "trip.vehicleID", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName("uniq_open_trip_per_vehicle").
			SetPartialFilterExpression(bson.M{"trip.open": true}),
	})
	return err
}
