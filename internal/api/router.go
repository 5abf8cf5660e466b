package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"punchclock.service/internal/api/handler"
	"punchclock.service/internal/core"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(service *core.PunchService) *mux.Router {

	punchHandler := handler.PunchHandler{
		Service: service,
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/punch", punchHandler.SubmitPunch).Methods(http.MethodPost)
	api.HandleFunc("/punches/{employeeId}", punchHandler.ListPunches).Methods(http.MethodGet)
	api.HandleFunc("/weekly-summary/{employeeId}", punchHandler.WeeklySummary).Methods(http.MethodGet)
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	return r
}
