package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"kindred-backend/internal/imagegen"

	"github.com/google/uuid"
)

// FailedMessage is the fixed user-visible message stored on a failed task.
// The underlying provider error goes to the logs only.
const FailedMessage = "Failed to generate"

var (
	ErrMissingCredential = errors.New("no image generation engine is configured")
	ErrMissingInput      = errors.New("both parent images are required")
	ErrInvalidWeight     = errors.New("blend weight must be between 0 and 100")
	ErrAlreadyRunning    = errors.New("generation for this gender is already running")
)

// InputSource provides the finalized parent payloads for a run. The
// orchestrator only reads from it; payloads are fixed at the moment a run
// starts and later uploads do not affect in-flight tasks.
type InputSource interface {
	Parents() (father, mother imagegen.Image, ok bool)
}

// Orchestrator fans one generation trigger out into three concurrent engine
// calls (one per target age) and reconciles each outcome into the registry
// independently. Each gender has its own busy slot, so runs for different
// genders may overlap while a same-gender re-trigger is rejected.
type Orchestrator struct {
	registry *Registry
	inputs   InputSource
	engine   imagegen.Engine

	mu   sync.Mutex
	busy map[Gender]bool
}

func NewOrchestrator(registry *Registry, inputs InputSource, engine imagegen.Engine) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		inputs:   inputs,
		engine:   engine,
		busy:     make(map[Gender]bool, len(Genders)),
	}
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Busy reports whether a run for the gender is still in flight.
func (o *Orchestrator) Busy(gender Gender) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy[gender]
}

// Generate starts one run for the gender. All preconditions are checked
// synchronously before any task state changes, so a rejected call has no side
// effects. On acceptance the three generation calls run concurrently; the
// returned channel closes once every call has settled, which is also the
// moment the busy slot clears. One failure never aborts the sibling calls.
func (o *Orchestrator) Generate(ctx context.Context, gender Gender, weight int) (uuid.UUID, <-chan struct{}, error) {
	if o.engine == nil {
		return uuid.Nil, nil, ErrMissingCredential
	}

	father, mother, ok := o.inputs.Parents()
	if !ok {
		return uuid.Nil, nil, ErrMissingInput
	}

	if weight < 0 || weight > 100 {
		return uuid.Nil, nil, fmt.Errorf("%w, got %d", ErrInvalidWeight, weight)
	}

	// The busy check and the LOADING transition share one critical section,
	// so a concurrent same-gender trigger observes the slot taken before any
	// task has been spawned.
	o.mu.Lock()
	if o.busy[gender] {
		o.mu.Unlock()
		return uuid.Nil, nil, ErrAlreadyRunning
	}
	tasks, err := o.registry.BeginRun(gender)
	if err != nil {
		o.mu.Unlock()
		return uuid.Nil, nil, err
	}
	o.busy[gender] = true
	o.mu.Unlock()

	runId := uuid.New()
	slog.Info("starting generation run",
		"run_id", runId, "gender", gender, "blend_weight", weight, "engine", o.engine.Name())

	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task PredictionTask) {
			defer wg.Done()
			o.runTask(ctx, runId, task, father, mother, weight)
		}(task)
	}

	go func() {
		wg.Wait()

		o.mu.Lock()
		o.busy[gender] = false
		o.mu.Unlock()

		slog.Info("generation run settled", "run_id", runId, "gender", gender)
		close(done)
	}()

	return runId, done, nil
}

// runTask performs the single generation attempt for one task and resolves
// exactly that task. There are no retries; retrying means re-triggering the
// whole gender.
func (o *Orchestrator) runTask(ctx context.Context, runId uuid.UUID, task PredictionTask, father, mother imagegen.Image, weight int) {
	instruction := BuildInstruction(task.Gender, task.Age, weight)

	image, err := o.engine.Generate(ctx, father, mother, instruction)
	if err == nil && image.Empty() {
		err = imagegen.ErrNoImage
	}
	if err != nil {
		slog.Error("generation task failed", "run_id", runId, "task", task.Key, "error", err)
		o.registry.ResolveFailure(task.Key, FailedMessage)
		return
	}

	slog.Info("generation task ready",
		"run_id", runId, "task", task.Key, "bytes", len(image.Data), "mime_type", image.MimeType)
	o.registry.ResolveSuccess(task.Key, image)
}
