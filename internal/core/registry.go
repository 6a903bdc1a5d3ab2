package core

import (
	"slices"
	"sync"

	"kindred-backend/internal/imagegen"
)

// Registry owns the six fixed prediction task records. Tasks are created once
// and never added or removed; only their mutable fields change. It is the
// single writer for task state: every mutation takes the lock and touches
// exactly one task (BeginRun touches the three tasks of one gender, still
// under one lock acquisition), so concurrent completions can interleave in
// any order without corrupting sibling slots.
type Registry struct {
	mu    sync.Mutex
	order []TaskKey
	tasks map[TaskKey]*PredictionTask
}

func NewRegistry() *Registry {
	registry := &Registry{
		tasks: make(map[TaskKey]*PredictionTask, len(Genders)*len(Ages)),
	}

	for _, gender := range Genders {
		for _, age := range Ages {
			key := NewTaskKey(gender, age)
			registry.order = append(registry.order, key)
			registry.tasks[key] = &PredictionTask{
				Key:    key,
				Gender: gender,
				Age:    age,
				Status: TaskIdle,
			}
		}
	}

	return registry
}

// BeginRun flips the gender's three tasks to LOADING, clearing any result
// left over from a previous run, and returns copies of them for the caller
// to fan out over. Tasks of the other gender are not touched. A gender with
// a task still LOADING has an unsettled run, and starting another one would
// let two writers race on the same slots, so the call is rejected.
func (r *Registry) BeginRun(gender Gender) ([]PredictionTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.order {
		task := r.tasks[key]
		if task.Gender == gender && task.Status == TaskLoading {
			return nil, ErrAlreadyRunning
		}
	}

	started := make([]PredictionTask, 0, len(Ages))
	for _, key := range r.order {
		task := r.tasks[key]
		if task.Gender != gender {
			continue
		}

		task.Status = TaskLoading
		task.Image = imagegen.Image{}
		task.Error = ""
		started = append(started, *task)
	}

	return started, nil
}

// ResolveSuccess records a generated image on one task. Resolutions are
// idempotent overwrites; completion order across tasks is not assumed.
func (r *Registry) ResolveSuccess(key TaskKey, image imagegen.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[key]
	if !ok {
		return
	}

	task.Status = TaskReady
	task.Image = image
	task.Error = ""
}

// ResolveFailure records a failure on one task. The reason is the
// user-visible message, not the provider error.
func (r *Registry) ResolveFailure(key TaskKey, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[key]
	if !ok {
		return
	}

	task.Status = TaskFailed
	task.Image = imagegen.Image{}
	task.Error = reason
}

// Snapshot returns deep copies of all six tasks in fixed order. Callers may
// mutate the result freely; each task copy is taken atomically.
func (r *Registry) Snapshot() []PredictionTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks := make([]PredictionTask, 0, len(r.order))
	for _, key := range r.order {
		task := *r.tasks[key]
		task.Image.Data = slices.Clone(task.Image.Data)
		tasks = append(tasks, task)
	}

	return tasks
}
