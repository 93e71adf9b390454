package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/middleware"
	"github.com/inaiurai/fleetdispatch/internal/models"
	"github.com/inaiurai/fleetdispatch/internal/pool"
	"github.com/inaiurai/fleetdispatch/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubRegistry struct{}

func (stubRegistry) Room(id string) (models.Pose, bool) {
	if id == "A" {
		return models.NewPose(1, 2, 0), true
	}
	return models.Pose{}, false
}

func (stubRegistry) Station(id int) (models.Pose, bool) {
	if id == 1 {
		return models.NewPose(0, 0, 0), true
	}
	return models.Pose{}, false
}

type stubAllocator struct {
	got        models.RobotRequest
	assignment *models.Assignment
	err        error
}

func (s *stubAllocator) Allocate(_ context.Context, req models.RobotRequest) (*models.Assignment, error) {
	s.got = req
	return s.assignment, s.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func schemasDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file location")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "schemas")
}

func newTestHandler(t *testing.T) (*TaskHandler, *pool.TaskPool) {
	t.Helper()
	v, err := services.NewValidator(context.Background(), schemasDir(t))
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	p := pool.New()
	return &TaskHandler{
		Pool:    p,
		Factory: services.NewTaskFactory(v, stubRegistry{}),
		Logger:  slog.Default(),
	}, p
}

func withRobot(r *http.Request) *http.Request {
	rb := &models.Robot{ID: uuid.New(), Name: "rb-1"}
	return r.WithContext(middleware.WithRobot(r.Context(), rb))
}

func deadline() string {
	return time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreateTask_ValidPayload(t *testing.T) {
	h, p := newTestHandler(t)

	body := fmt.Sprintf(`{"kind":"simple","payload":{"room_id":"A","deadline":%q,"priority":3}}`, deadline())
	req := withRobot(httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp createTaskResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != models.TaskKindSimple {
		t.Errorf("kind = %q", resp.Kind)
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 pooled task, got %d", p.Len())
	}
}

func TestCreateTask_InvalidSchema(t *testing.T) {
	h, p := newTestHandler(t)

	body := `{"kind":"simple","payload":{"room_id":"A"}}`
	req := withRobot(httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	h.CreateTask(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if p.Len() != 0 {
		t.Error("invalid task reached the pool")
	}
}

func TestCreateTask_UnknownRoom(t *testing.T) {
	h, _ := newTestHandler(t)

	body := fmt.Sprintf(`{"kind":"simple","payload":{"room_id":"Z","deadline":%q}}`, deadline())
	req := withRobot(httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	h.CreateTask(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTask_DuplicateID(t *testing.T) {
	h, p := newTestHandler(t)
	id := uuid.New()
	body := fmt.Sprintf(`{"kind":"door","payload":{"id":%q,"room_id":"A"}}`, id)

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := withRobot(httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body)))
		rec := httptest.NewRecorder()
		h.CreateTask(rec, req)
		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d: %s", i, want, rec.Code, rec.Body.String())
		}
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 pooled task, got %d", p.Len())
	}
}

func TestCreateTask_Unauthenticated(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.CreateTask(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestListAndGetTask(t *testing.T) {
	h, p := newTestHandler(t)
	task := &models.DoorTask{ID: uuid.New(), RoomID: "A", Target: models.NewPose(1, 2, 0)}
	if err := p.Insert(task); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ListTasks(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list struct {
		Size  int `json:"size"`
		Tasks []struct {
			Kind string `json:"kind"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Size != 1 || list.Tasks[0].Kind != models.TaskKindDoor {
		t.Errorf("unexpected list %+v", list)
	}

	rec = httptest.NewRecorder()
	h.GetTask(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks/"+task.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetTask(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing: expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetTask(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("get bad id: expected 400, got %d", rec.Code)
	}
}

func TestListTaskKinds(t *testing.T) {
	rec := httptest.NewRecorder()
	ListTaskKinds(rec, httptest.NewRequest(http.MethodGet, "/v1/task-kinds", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var kinds []taskKindInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &kinds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(kinds) != 4 {
		t.Errorf("expected 4 kinds, got %d", len(kinds))
	}
}

func TestRequestTask_Assigned(t *testing.T) {
	taskID := uuid.New()
	alloc := &stubAllocator{assignment: &models.Assignment{TaskID: taskID, Kind: models.TaskKindSimple, RoomID: "A"}}
	h := &AllocationHandler{Allocator: alloc, Logger: slog.Default()}

	body := `{"last_task":{"completed":true,"door_status":"open","room_id":"A"},"pose":{"position":{"x":1,"y":2,"z":0},"orientation":{"x":0,"y":0,"z":0,"w":1}},"battery_level":80}`
	req := withRobot(httptest.NewRequest(http.MethodPost, "/v1/allocations", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	h.RequestTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Assignment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TaskID != taskID || got.Completed {
		t.Errorf("unexpected assignment %+v", got)
	}
	if alloc.got.RobotID != middleware.RobotFromCtx(req.Context()).ID {
		t.Error("robot id not taken from token")
	}
	if alloc.got.BatteryLevel != 80 || alloc.got.LastTask.DoorStatus != models.DoorStatusOpen {
		t.Errorf("request not forwarded: %+v", alloc.got)
	}
}

func TestRequestTask_NoTaskAvailable(t *testing.T) {
	alloc := &stubAllocator{err: fmt.Errorf("%w: %w", services.ErrNoTaskAvailable, pool.ErrEmptyPool)}
	h := &AllocationHandler{Allocator: alloc, Logger: slog.Default()}

	req := withRobot(httptest.NewRequest(http.MethodPost, "/v1/allocations", strings.NewReader(`{"battery_level":50}`)))
	rec := httptest.NewRecorder()
	h.RequestTask(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no task available") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if alloc.got.LastTask.DoorStatus != models.DoorStatusUnknown {
		t.Errorf("door status defaulted to %q", alloc.got.LastTask.DoorStatus)
	}
}

func TestRequestTask_BadInput(t *testing.T) {
	h := &AllocationHandler{Allocator: &stubAllocator{err: errors.New("unreachable")}, Logger: slog.Default()}
	cases := map[string]string{
		"not json":      `{`,
		"battery > 100": `{"battery_level":101}`,
		"battery < 0":   `{"battery_level":-1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := withRobot(httptest.NewRequest(http.MethodPost, "/v1/allocations", strings.NewReader(body)))
			rec := httptest.NewRecorder()
			h.RequestTask(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestRequestTask_InternalError(t *testing.T) {
	h := &AllocationHandler{Allocator: &stubAllocator{err: errors.New("boom")}, Logger: slog.Default()}
	req := withRobot(httptest.NewRequest(http.MethodPost, "/v1/allocations", strings.NewReader(`{"battery_level":5}`)))
	rec := httptest.NewRecorder()
	h.RequestTask(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
