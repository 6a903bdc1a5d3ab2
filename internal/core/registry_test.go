package core_test

import (
	"testing"

	"kindred-backend/internal/core"
	"kindred-backend/internal/imagegen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry := core.NewRegistry()

	tasks := registry.Snapshot()
	require.Len(t, tasks, 6)

	seen := map[core.TaskKey]bool{}
	for _, task := range tasks {
		assert.Equal(t, core.TaskIdle, task.Status)
		assert.True(t, task.Image.Empty())
		assert.Empty(t, task.Error)
		assert.Equal(t, core.NewTaskKey(task.Gender, task.Age), task.Key)
		seen[task.Key] = true
	}

	for _, gender := range core.Genders {
		for _, age := range core.Ages {
			assert.True(t, seen[core.NewTaskKey(gender, age)], "missing task for %s-%d", gender, age)
		}
	}
}

func TestBeginRunOnlyTouchesMatchingGender(t *testing.T) {
	registry := core.NewRegistry()
	registry.ResolveSuccess(core.NewTaskKey(core.GenderBoy, 5), imagegen.Image{Data: []byte("boy5"), MimeType: "image/png"})

	started, err := registry.BeginRun(core.GenderGirl)
	require.NoError(t, err)
	require.Len(t, started, 3)

	for _, task := range registry.Snapshot() {
		if task.Gender == core.GenderGirl {
			assert.Equal(t, core.TaskLoading, task.Status)
			assert.True(t, task.Image.Empty())
			assert.Empty(t, task.Error)
		} else if task.Key == core.NewTaskKey(core.GenderBoy, 5) {
			assert.Equal(t, core.TaskReady, task.Status)
			assert.Equal(t, []byte("boy5"), task.Image.Data)
		} else {
			assert.Equal(t, core.TaskIdle, task.Status)
		}
	}
}

func TestBeginRunClearsPreviousResults(t *testing.T) {
	registry := core.NewRegistry()

	_, err := registry.BeginRun(core.GenderBoy)
	require.NoError(t, err)
	registry.ResolveSuccess(core.NewTaskKey(core.GenderBoy, 5), imagegen.Image{Data: []byte("img"), MimeType: "image/png"})
	registry.ResolveFailure(core.NewTaskKey(core.GenderBoy, 15), "Failed to generate")
	registry.ResolveFailure(core.NewTaskKey(core.GenderBoy, 25), "Failed to generate")

	_, err = registry.BeginRun(core.GenderBoy)
	require.NoError(t, err)

	for _, task := range registry.Snapshot() {
		if task.Gender != core.GenderBoy {
			continue
		}
		assert.Equal(t, core.TaskLoading, task.Status)
		assert.True(t, task.Image.Empty())
		assert.Empty(t, task.Error)
	}
}

func TestBeginRunRejectsUnsettledRun(t *testing.T) {
	registry := core.NewRegistry()

	_, err := registry.BeginRun(core.GenderBoy)
	require.NoError(t, err)

	// A boy task is still LOADING, so another boy run must be refused while
	// the other gender stays available.
	_, err = registry.BeginRun(core.GenderBoy)
	assert.ErrorIs(t, err, core.ErrAlreadyRunning)

	_, err = registry.BeginRun(core.GenderGirl)
	require.NoError(t, err)

	for _, age := range core.Ages {
		registry.ResolveSuccess(core.NewTaskKey(core.GenderBoy, age), imagegen.Image{Data: []byte("img"), MimeType: "image/png"})
	}

	_, err = registry.BeginRun(core.GenderBoy)
	require.NoError(t, err)
}

func TestResolveInvariants(t *testing.T) {
	registry := core.NewRegistry()
	key := core.NewTaskKey(core.GenderGirl, 25)

	_, err := registry.BeginRun(core.GenderGirl)
	require.NoError(t, err)

	t.Run("FailureSetsErrorOnly", func(t *testing.T) {
		registry.ResolveFailure(key, "Failed to generate")

		task := findTask(t, registry, key)
		assert.Equal(t, core.TaskFailed, task.Status)
		assert.True(t, task.Image.Empty())
		assert.Equal(t, "Failed to generate", task.Error)
	})

	t.Run("SuccessOverwritesFailure", func(t *testing.T) {
		registry.ResolveSuccess(key, imagegen.Image{Data: []byte("img"), MimeType: "image/png"})

		task := findTask(t, registry, key)
		assert.Equal(t, core.TaskReady, task.Status)
		assert.Equal(t, []byte("img"), task.Image.Data)
		assert.Empty(t, task.Error)
	})

	t.Run("UnknownKeyIsNoop", func(t *testing.T) {
		before := registry.Snapshot()
		registry.ResolveFailure(core.TaskKey("girl-99"), "Failed to generate")
		assert.Equal(t, before, registry.Snapshot())
	})
}

func TestSnapshotIsIsolatedCopy(t *testing.T) {
	registry := core.NewRegistry()
	key := core.NewTaskKey(core.GenderBoy, 15)

	_, err := registry.BeginRun(core.GenderBoy)
	require.NoError(t, err)
	registry.ResolveSuccess(key, imagegen.Image{Data: []byte("abc"), MimeType: "image/png"})

	snapshot := registry.Snapshot()
	for i := range snapshot {
		snapshot[i].Status = "MANGLED"
		if !snapshot[i].Image.Empty() {
			snapshot[i].Image.Data[0] = 'z'
		}
	}

	task := findTask(t, registry, key)
	assert.Equal(t, core.TaskReady, task.Status)
	assert.Equal(t, []byte("abc"), task.Image.Data)
}

func findTask(t *testing.T, registry *core.Registry, key core.TaskKey) core.PredictionTask {
	t.Helper()
	for _, task := range registry.Snapshot() {
		if task.Key == key {
			return task
		}
	}
	t.Fatalf("task %s not found", key)
	return core.PredictionTask{}
}
