package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// ErrValidation can be used with errors.Is to detect payload validation failures.
var ErrValidation = errors.New("validation failed")

// Validator checks task creation payloads against one JSON schema per task kind.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator loads <kind>.json from schemaDir for every task kind.
func NewValidator(ctx context.Context, schemaDir string) (*Validator, error) {
	_ = ctx
	entries, err := os.ReadDir(schemaDir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %q: %w", schemaDir, err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		kind := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		path := filepath.Join(schemaDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		id := "https://fleetdispatch.dev/schemas/" + kind + ".json"
		schemas[kind], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", kind, err)
		}
	}
	for _, kind := range []string{models.TaskKindSimple, models.TaskKindCompound, models.TaskKindCharging, models.TaskKindDoor} {
		if _, ok := schemas[kind]; !ok {
			return nil, fmt.Errorf("schema dir %q: missing %s.json", schemaDir, kind)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// ValidateTask performs hard reject: returns an error if payload does not match the kind's schema.
func (v *Validator) ValidateTask(ctx context.Context, kind string, payload json.RawMessage) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("%w: unknown task kind %q", ErrValidation, kind)
	}
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
