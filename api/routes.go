package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/taxi/pkg/repository"
)

// Deps are the services the routes are wired to.
type Deps struct {
	Passengers     repository.PassengerRepo
	Requests       repository.RequestRepo
	Exporter       Exporter
	Mail           MailChecker
	MaxUploadBytes int64
	Version        string
	BuildTime      string
}

func SetupRoutes(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Preflight requests need a matching route for the middleware to run.
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	systemHandler := &SystemHandler{}
	passengers := NewPassengersHandler(d.Passengers)
	requests := NewRequestsHandler(d.Requests)
	imports := NewImportHandler(d.Passengers, d.MaxUploadBytes)
	exports := NewExportHandler(d.Exporter)
	email := NewEmailHandler(d.Mail)

	r.HandleFunc("/", systemHandler.RootHandler).Methods("GET")
	r.HandleFunc("/version", systemHandler.VersionHandler(d.Version, d.BuildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	// Passengers
	r.HandleFunc("/passengers", passengers.List).Methods("GET")
	r.HandleFunc("/passengers", passengers.Create).Methods("POST")
	r.HandleFunc("/passengers/{id}", passengers.Get).Methods("GET")
	r.HandleFunc("/passengers/{id}", passengers.Update).Methods("PUT")
	r.HandleFunc("/passengers/{id}", passengers.Delete).Methods("DELETE")

	// Requests
	r.HandleFunc("/requests", requests.List).Methods("GET")
	r.HandleFunc("/requests", requests.Create).Methods("POST")
	r.HandleFunc("/requests/{id}/status", requests.UpdateStatus).Methods("PUT")
	r.HandleFunc("/requests/{id}", requests.Delete).Methods("DELETE")

	// Imports
	r.HandleFunc("/import/passengers", imports.ImportJSON).Methods("POST")
	r.HandleFunc("/import/passengers/file", imports.ImportFile).Methods("POST")
	r.HandleFunc("/import/passengers/preview", imports.Preview).Methods("POST")

	// Exports and mail
	r.HandleFunc("/export/requests", exports.EmailRequests).Methods("POST")
	r.HandleFunc("/export/download", exports.Download).Methods("POST")
	r.HandleFunc("/test-email", email.Check).Methods("GET")
	r.HandleFunc("/test-email/send", email.SendTest).Methods("POST")

	return r
}
