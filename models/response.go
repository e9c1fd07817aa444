package models

// HealthCheckResponse returns the health check response, the response
// to tell if the api is up and running
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
