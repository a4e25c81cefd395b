package timeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(TaskResult) TaskHandler {
	return func(tc *TaskContext, anim *Animation, task *WorkTask, params Params, stage TaskStage) (TaskResult, error) {
		return TaskExit, nil
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("noop", noopHandler(TaskExit)))

	_, ok := r.Resolve("noop")
	assert.True(t, ok)
	_, ok = r.Resolve("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("noop", noopHandler(TaskExit)))
	err := r.Register("noop", noopHandler(TaskExit))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestRegistry_EmptyNameRejected(t *testing.T) {
	err := NewRegistry().Register("", noopHandler(TaskExit))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestRegistry_Validate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterValidated("checked",
		noopHandler(TaskExit),
		func(params Params) error {
			if _, ok := params["required"]; !ok {
				return errors.New("missing required param")
			}
			return nil
		}))

	assert.NoError(t, r.Validate("checked", Params{"required": 1}))

	err := r.Validate("checked", Params{})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	err = r.Validate("missing", Params{})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Names())

	require.NoError(t, r.Register("move", noopHandler(TaskExit)))
	require.NoError(t, r.Register("fade", noopHandler(TaskExit)))
	assert.ElementsMatch(t, []string{"move", "fade"}, r.Names())
}

func TestDispatcher_ExitStopsReinvocation(t *testing.T) {
	r := NewRegistry()
	calls := 0
	require.NoError(t, r.Register("once", func(tc *TaskContext, anim *Animation, task *WorkTask, params Params, stage TaskStage) (TaskResult, error) {
		calls++
		return TaskExit, nil
	}))

	d := NewDispatcher(r)
	task := NewWorkTask("once", nil)
	tc := &TaskContext{}

	require.NoError(t, d.Dispatch(tc, nil, task, TaskAnimeLoop))
	require.NoError(t, d.Dispatch(tc, nil, task, TaskAnimeLoop))
	assert.Equal(t, 1, calls, "a stage the handler exited must not be re-invoked")

	// Other stages are independent of the exited one.
	require.NoError(t, d.Dispatch(tc, nil, task, TaskInit))
	assert.Equal(t, 2, calls)
}

func TestDispatcher_ContinueReinvokes(t *testing.T) {
	r := NewRegistry()
	calls := 0
	require.NoError(t, r.Register("loop", func(tc *TaskContext, anim *Animation, task *WorkTask, params Params, stage TaskStage) (TaskResult, error) {
		calls++
		return TaskContinue, nil
	}))

	d := NewDispatcher(r)
	task := NewWorkTask("loop", nil)
	tc := &TaskContext{}

	require.NoError(t, d.Dispatch(tc, nil, task, TaskAnimeLoop))
	require.NoError(t, d.Dispatch(tc, nil, task, TaskAnimeLoop))
	assert.Equal(t, 2, calls)
}

func TestDispatcher_ResetStagesReactivates(t *testing.T) {
	r := NewRegistry()
	calls := 0
	require.NoError(t, r.Register("once", func(tc *TaskContext, anim *Animation, task *WorkTask, params Params, stage TaskStage) (TaskResult, error) {
		calls++
		return TaskExit, nil
	}))

	d := NewDispatcher(r)
	task := NewWorkTask("once", nil)
	tc := &TaskContext{}

	require.NoError(t, d.Dispatch(tc, nil, task, TaskInit))
	task.resetStages()
	require.NoError(t, d.Dispatch(tc, nil, task, TaskInit))
	assert.Equal(t, 2, calls, "re-activation resets stage completion")
}

func TestDispatcher_UnknownHandler(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	err := d.Dispatch(&TaskContext{}, nil, NewWorkTask("ghost", nil), TaskInit)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestDispatcher_HandlerErrorWrapped(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Register("bad", func(tc *TaskContext, anim *Animation, task *WorkTask, params Params, stage TaskStage) (TaskResult, error) {
		return TaskExit, boom
	}))

	err := NewDispatcher(r).Dispatch(&TaskContext{}, nil, NewWorkTask("bad", nil), TaskAnimeLoop)
	assert.ErrorIs(t, err, boom)
}

func TestParams_Clone(t *testing.T) {
	p := Params{"a": 1}
	c := p.Clone()
	c["a"] = 2
	assert.Equal(t, 1, p["a"])
	assert.Nil(t, Params(nil).Clone())
}
