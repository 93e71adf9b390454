package router

import (
	"net/http"

	"github.com/inaiurai/fleetdispatch/internal/auth"
	"github.com/inaiurai/fleetdispatch/internal/dashboard"
	"github.com/inaiurai/fleetdispatch/internal/registry"
)

// New returns an http.Handler for the /v1 routes that do not go through the
// robot auth middleware: enrolment, login, registries and status.
func New(authHandler *auth.Handler, registryHandler *registry.Handler, dashHandler *dashboard.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/v1"
	mux.HandleFunc(base+"/robots", authHandler.Register)
	mux.HandleFunc(base+"/robots/login", authHandler.Login)
	mux.HandleFunc(base+"/robots/me/assignments", methodGET(dashHandler.ListMyAssignments))

	mux.HandleFunc(base+"/rooms", registryHandler.ListRooms)
	mux.HandleFunc(base+"/stations", registryHandler.ListStations)
	mux.HandleFunc(base+"/status", methodGET(dashHandler.GetStatus))

	return mux
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
