package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/camaradigital/frota-api/api/handlers"
	"github.com/camaradigital/frota-api/api/scheduler"
	"github.com/camaradigital/frota-api/config"
	"github.com/camaradigital/frota-api/databases"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	if err := a.Initialize(); err != nil {
		log.Fatal(err)
	}

	s := scheduler.NewScheduler(
		databases.NewVehicleDatabase(a.DBHelper()),
		databases.NewTripDatabase(a.DBHelper()),
	)
	s.Start()
	defer s.Stop()

	port := os.Getenv("PORT")
	baseURL := os.Getenv("BASE_URL")
	zap.S().Infow("frota-api is up and running",
		"port", port,
		"url", baseURL,
	)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", port), a.Router))
}
