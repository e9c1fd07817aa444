package databases

// go generate: mockery --name IncidentPhotoDatabase

import (
	"context"

	"github.com/camaradigital/frota-api/models"
)

const incidentPhotoName = "incidentPhotos"

// IncidentPhotoDatabase contains the methods to use with the incident photo database
type IncidentPhotoDatabase interface {
	InsertOne(ctx context.Context, photo models.IncidentPhoto) (interface{}, error)
	Find(ctx context.Context, filter interface{}) ([]models.IncidentPhoto, error)
}

type incidentPhotoDatabase struct {
	db DatabaseHelper
}

// NewIncidentPhotoDatabase initializes a new instance of incident photo database
// with the provided db connection
func NewIncidentPhotoDatabase(db DatabaseHelper) IncidentPhotoDatabase {
	return &incidentPhotoDatabase{
		db: db,
	}
}

func (p *incidentPhotoDatabase) InsertOne(ctx context.Context, photo models.IncidentPhoto) (interface{}, error) {
	res, err := p.db.Collection(incidentPhotoName).InsertOne(ctx, photo)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (p *incidentPhotoDatabase) Find(ctx context.Context, filter interface{}) ([]models.IncidentPhoto, error) {
	var photos []models.IncidentPhoto
	cursor, err := p.db.Collection(incidentPhotoName).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&photos)
	if err != nil {
		return nil, err
	}
	return photos, nil
}
