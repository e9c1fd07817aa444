package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/databases/mocks"
	"github.com/camaradigital/frota-api/models"
)

func TestTripDatabase_OpenVehicleIDs(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	v1 := primitive.NewObjectID()
	v2 := primitive.NewObjectID()

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Trip)
		*arg = []models.Trip{
			{ID: primitive.NewObjectID(), Details: models.TripDetails{VehicleID: v1, Open: true}},
			{ID: primitive.NewObjectID(), Details: models.TripDetails{VehicleID: v2, Open: true}},
		}
	})
	conn.On("Find", mock.Anything, bson.M{"trip.open": true}).Return(cursor, nil)
	db.On("Collection", "trips").Return(conn)

	tripDatabase := databases.NewTripDatabase(db)
	occupied, err := tripDatabase.OpenVehicleIDs(context.Background())

	assert.NoError(t, err)
	assert.Len(t, occupied, 2)
	assert.True(t, occupied[v1])
	assert.True(t, occupied[v2])
	assert.False(t, occupied[primitive.NewObjectID()])
}

func TestTripDatabase_OpenVehicleIDsEmpty(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil)
	conn.On("Find", mock.Anything, bson.M{"trip.open": true}).Return(cursor, nil)
	db.On("Collection", "trips").Return(conn)

	tripDatabase := databases.NewTripDatabase(db)
	occupied, err := tripDatabase.OpenVehicleIDs(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, occupied)
}

func TestTripDatabase_CloseOneAlreadyClosed(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}

	singleResultHelper.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(singleResultHelper)
	db.On("Collection", "trips").Return(conn)

	tripDatabase := databases.NewTripDatabase(db)
	trip, err := tripDatabase.CloseOne(context.Background(), bson.M{"trip.open": true}, bson.M{})

	assert.Nil(t, trip)
	assert.Equal(t, mongo.ErrNoDocuments, err)
}

func TestTripDatabase_EnsureIndexes(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	conn.On("CreateIndex", mock.Anything, mock.MatchedBy(func(m mongo.IndexModel) bool {
		return m.Options != nil && m.Options.Unique != nil && *m.Options.Unique
	})).Return("uniq_open_trip_per_vehicle", nil)
	db.On("Collection", "trips").Return(conn)

	tripDatabase := databases.NewTripDatabase(db)
	assert.NoError(t, tripDatabase.EnsureIndexes(context.Background()))
	conn.AssertExpectations(t)
}

func TestTripDatabase_FindError(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	conn.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	db.On("Collection", "trips").Return(conn)

	tripDatabase := databases.NewTripDatabase(db)
	_, err := tripDatabase.Find(context.Background(), bson.M{})

	assert.EqualError(t, err, "mocked-error")
}
