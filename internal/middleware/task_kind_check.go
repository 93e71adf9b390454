package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

const ctxTaskKindKey contextKey = "task_kind"

// maxTaskBody caps task submissions. Compound tasks with many stops stay well
// below it.
const maxTaskBody = 1 << 20

// AllowedTaskKinds is the set of task variants the pool accepts.
var AllowedTaskKinds = map[string]bool{
	models.TaskKindSimple:   true,
	models.TaskKindCompound: true,
	models.TaskKindCharging: true,
	models.TaskKindDoor:     true,
}

// TaskKindFromCtx returns the kind parsed by TaskKindCheck, or "".
func TaskKindFromCtx(ctx context.Context) string {
	k, _ := ctx.Value(ctxTaskKindKey).(string)
	return k
}

// TaskKindCheck reads the body to extract "kind", rejects unknown variants,
// then replaces r.Body so downstream handlers can re-read it.
func TaskKindCheck() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTaskBody))
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek struct {
				Kind string `json:"kind"`
			}
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if peek.Kind == "" {
				http.Error(w, `{"error":"kind is required"}`, http.StatusBadRequest)
				return
			}
			if !AllowedTaskKinds[peek.Kind] {
				http.Error(w, fmt.Sprintf(`{"error":"task kind %q is not supported"}`, peek.Kind), http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), ctxTaskKindKey, peek.Kind)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
