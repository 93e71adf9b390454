package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/inaiurai/fleetdispatch/internal/handlers"
	"github.com/inaiurai/fleetdispatch/internal/middleware"
)

// RegisterV1Routes adds the robot-authenticated /v1/ endpoints to the given mux.
// Middleware chain: RobotAuth -> (TaskKindCheck on POST /v1/tasks only) -> handler.
func RegisterV1Routes(
	mux *http.ServeMux,
	tokens middleware.TokenValidator,
	robots middleware.RobotLookup,
	taskPool handlers.TaskStore,
	factory handlers.TaskBuilder,
	allocator handlers.Allocator,
	logger *slog.Logger,
) {
	th := &handlers.TaskHandler{
		Pool:    taskPool,
		Factory: factory,
		Logger:  logger,
	}
	ah := &handlers.AllocationHandler{
		Allocator: allocator,
		Logger:    logger,
	}

	auth := middleware.RobotAuth(tokens, robots)
	kindCheck := middleware.TaskKindCheck()

	// POST /v1/allocations: Auth -> RequestTask
	mux.Handle("POST /v1/allocations", auth(http.HandlerFunc(ah.RequestTask)))

	// POST /v1/tasks: Auth -> KindCheck -> CreateTask
	mux.Handle("POST /v1/tasks", auth(kindCheck(http.HandlerFunc(th.CreateTask))))

	// GET /v1/tasks/{id}: Auth -> GetTask
	mux.Handle("GET /v1/tasks/{id}", auth(http.HandlerFunc(th.GetTask)))

	// GET /v1/tasks: Auth -> ListTasks
	mux.Handle("GET /v1/tasks", auth(http.HandlerFunc(th.ListTasks)))

	// GET /healthz: pool size, no auth
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "pending_tasks": taskPool.Len()})
	})
}
