// Package scheduler runs the periodic fleet maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/models"
)

// Scheduler handles periodic background jobs for fleet maintenance
type Scheduler struct {
	cron *cron.Cron
	VDB  databases.VehicleDatabase
	TDB  databases.TripDatabase
}

// NewScheduler creates a new scheduler instance
func NewScheduler(vDB databases.VehicleDatabase, tDB databases.TripDatabase) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		VDB:  vDB,
		TDB:  tDB,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Scan for vehicles past their revision threshold daily at 6 AM UTC
	_, err := s.cron.AddFunc("0 6 * * *", s.checkRevisions)
	if err != nil {
		zap.S().Errorw("failed to register revision scan job", "error", err)
	}

	// Flag trips that stay open across midnight, daily at 7 AM UTC
	_, err = s.cron.AddFunc("0 7 * * *", s.checkStaleTrips)
	if err != nil {
		zap.S().Errorw("failed to register stale trip job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Fleet scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Fleet scheduler stopped")
}

// checkRevisions logs every vehicle at or past its revision threshold and,
// when a fleet admin email is configured, sends a summary. Purely advisory,
// checkouts are never blocked
func (s *Scheduler) checkRevisions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	vehicles, err := s.VDB.Find(ctx, bson.M{})
	if err != nil {
		zap.S().Errorw("failed to scan vehicles for revision", "error", err)
		return
	}

	due := vehiclesDue(vehicles)
	if len(due) == 0 {
		zap.S().Debug("no vehicles due for revision")
		return
	}

	for _, vehicle := range due {
		zap.S().Warnw("vehicle due for revision",
			"plate", vehicle.Details.Plate,
			"model", vehicle.Details.Model,
			"currentOdometer", vehicle.Details.CurrentOdometer,
			"nextRevisionOdometer", vehicle.Details.NextRevisionOdometer)
	}

	adminEmail := os.Getenv("FLEET_ADMIN_EMAIL")
	if adminEmail == "" {
		return
	}
	if err := s.sendEmail(adminEmail, "Administração da Frota",
		"Veículos com revisão pendente", revisionSummary(due)); err != nil {
		zap.S().Errorw("failed to send revision summary", "error", err)
	}
}

// checkStaleTrips logs trips that have been open for more than a day
func (s *Scheduler) checkStaleTrips() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	trips, err := s.TDB.FindOpen(ctx)
	if err != nil {
		zap.S().Errorw("failed to scan open trips", "error", err)
		return
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	for _, trip := range trips {
		if trip.Details.DepartureAt.Before(cutoff) {
			zap.S().Warnw("trip open for more than a day",
				"trip", trip.ID.Hex(),
				"vehicle", trip.Details.VehiclePlate,
				"driver", trip.Details.DriverName,
				"departureAt", trip.Details.DepartureAt)
		}
	}
}

// vehiclesDue filters the fleet down to the vehicles past their threshold
func vehiclesDue(vehicles []models.Vehicle) []models.Vehicle {
	var due []models.Vehicle
	for _, vehicle := range vehicles {
		if vehicle.Details.RevisionDue() {
			due = append(due, vehicle)
		}
	}
	return due
}

// revisionSummary renders the plain-text body of the revision email
func revisionSummary(due []models.Vehicle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Veículos com revisão pendente: %d\n\n", len(due))
	for _, vehicle := range due {
		fmt.Fprintf(&b, "- %s (%s): %d km, revisão prevista em %d km\n",
			vehicle.Details.Model, vehicle.Details.Plate,
			vehicle.Details.CurrentOdometer, vehicle.Details.NextRevisionOdometer)
	}
	return b.String()
}

func (s *Scheduler) sendEmail(toEmail, toName, subject, plainText string) error {
	from := mail.NewEmail("Frota Municipal", "no-reply@camaradigital.gov.br")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, plainText)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}
