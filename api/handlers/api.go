package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/camaradigital/frota-api/api"
	"github.com/camaradigital/frota-api/config"
	"github.com/camaradigital/frota-api/databases"
	"github.com/camaradigital/frota-api/models"
	"github.com/camaradigital/frota-api/photos"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	Photos   *photos.Store
	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	u := User{DB: databases.NewUserDatabase(a.dbHelper), TDB: databases.NewTripDatabase(a.dbHelper)}
	v := Vehicle{DB: databases.NewVehicleDatabase(a.dbHelper), TDB: databases.NewTripDatabase(a.dbHelper)}
	t := Trip{
		DB:     databases.NewTripDatabase(a.dbHelper),
		VDB:    databases.NewVehicleDatabase(a.dbHelper),
		UDB:    databases.NewUserDatabase(a.dbHelper),
		IDB:    databases.NewIncidentPhotoDatabase(a.dbHelper),
		Photos: a.Photos,
	}
	rep := Report{
		DB:  databases.NewTripDatabase(a.dbHelper),
		IDB: databases.NewIncidentPhotoDatabase(a.dbHelper),
	}
	d := Dashboard{
		DB:  databases.NewTripDatabase(a.dbHelper),
		VDB: databases.NewVehicleDatabase(a.dbHelper),
	}
	p := Photo{Store: a.Photos}
	login := Login{DB: databases.NewUserDatabase(a.dbHelper)}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")
	apiCreate.Handle("/auth/admin-login", http.HandlerFunc(login.AdminLoginHandler)).Methods("POST")

	apiCreate.Handle("/user", api.AdminOnly(http.HandlerFunc(u.CreateUserHandler))).Methods("POST")
	apiCreate.Handle("/users", api.AdminOnly(http.HandlerFunc(u.UserHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}", api.AdminOnly(http.HandlerFunc(u.UserByIDHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}", api.AdminOnly(http.HandlerFunc(u.UpdateUserHandler))).Methods("PUT")
	apiCreate.Handle("/user/{user_id}/toggle-active", api.AdminOnly(http.HandlerFunc(u.ToggleUserActiveHandler))).Methods("PUT")
	apiCreate.Handle("/user/{user_id}", api.AdminOnly(http.HandlerFunc(u.DeleteUserHandler))).Methods("DELETE")

	apiCreate.Handle("/vehicle", api.AdminOnly(http.HandlerFunc(v.CreateVehicleHandler))).Methods("POST")
	apiCreate.Handle("/vehicles", api.Middleware(http.HandlerFunc(v.VehicleHandler))).Methods("GET")
	apiCreate.Handle("/vehicle/{vehicle_id}", api.Middleware(http.HandlerFunc(v.VehicleByIDHandler))).Methods("GET")
	apiCreate.Handle("/vehicle/{vehicle_id}", api.AdminOnly(http.HandlerFunc(v.UpdateVehicleHandler))).Methods("PUT")
	apiCreate.Handle("/vehicle/{vehicle_id}", api.AdminOnly(http.HandlerFunc(v.DeleteVehicleHandler))).Methods("DELETE")
	apiCreate.Handle("/vehicle/{vehicle_id}/reset-revision", api.AdminOnly(http.HandlerFunc(v.ResetRevisionHandler))).Methods("PUT")

	apiCreate.Handle("/trip/checkout", api.Middleware(http.HandlerFunc(t.CheckoutHandler))).Methods("POST")
	apiCreate.Handle("/trip/{trip_id}/checkin", api.Middleware(http.HandlerFunc(t.CheckinHandler))).Methods("POST")
	apiCreate.Handle("/trips/open", api.Middleware(http.HandlerFunc(t.OpenTripsHandler))).Methods("GET")
	apiCreate.Handle("/trip/{trip_id}", api.Middleware(http.HandlerFunc(t.TripByIDHandler))).Methods("GET")
	apiCreate.Handle("/trip/{trip_id}", api.AdminOnly(http.HandlerFunc(t.UpdateTripHandler))).Methods("PUT")

	apiCreate.Handle("/report/history", api.AdminOnly(http.HandlerFunc(rep.HistoryHandler))).Methods("GET")
	apiCreate.Handle("/report/incidents", api.AdminOnly(http.HandlerFunc(rep.IncidentsHandler))).Methods("GET")
	apiCreate.Handle("/report/export", api.AdminOnly(http.HandlerFunc(rep.ExportHandler))).Methods("GET")
	apiCreate.Handle("/admin/dashboard", api.AdminOnly(http.HandlerFunc(d.DashboardHandler))).Methods("GET")

	r.Handle("/uploads/{filename}", api.Middleware(http.HandlerFunc(p.ServeHandler))).Methods("GET")
	r.Handle("/download/{filename}", api.Middleware(http.HandlerFunc(p.DownloadHandler))).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("frota-api has connected to the database")

	ctx, cancel := api.WithQueryTimeout(nil)
	defer cancel()
	if err := databases.NewUserDatabase(a.dbHelper).EnsureIndexes(ctx); err != nil {
		zap.S().With(err).Error("failed to create user indexes")
		return err
	}
	if err := databases.NewTripDatabase(a.dbHelper).EnsureIndexes(ctx); err != nil {
		zap.S().With(err).Error("failed to create trip indexes")
		return err
	}

	a.Photos, err = photos.NewStore(a.Config.UploadDir)
	if err != nil {
		zap.S().With(err).Error("failed to create photo store")
		return err
	}

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// DBHelper exposes the database connection for background jobs
func (a *App) DBHelper() databases.DatabaseHelper {
	return a.dbHelper
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
