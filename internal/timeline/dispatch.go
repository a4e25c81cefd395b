package timeline

import (
	"fmt"
	"sync"
)

// TaskStage identifies which phase of the dispatch protocol a handler is
// being invoked for.
type TaskStage int

const (
	// TaskInit fires the first time the owning animation becomes active.
	// Parameter validation and one-time setup belong here. The engine
	// guarantees it fires exactly once per animation activation.
	TaskInit TaskStage = iota + 1

	// TaskTeleport fires only while preparing a teleport snapshot. It lets
	// a task normalize live values (channels, function references) into
	// serializable form before transmission.
	TaskTeleport

	// TaskAnimeLoop fires once per rendered frame while the owning
	// animation is active.
	TaskAnimeLoop
)

// String returns the stage name for logging.
func (s TaskStage) String() string {
	switch s {
	case TaskInit:
		return "INIT"
	case TaskTeleport:
		return "TELEPORT"
	case TaskAnimeLoop:
		return "ANIME_LOOP"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// TaskResult is a handler's verdict for a stage invocation.
type TaskResult int

const (
	// TaskExit means the task is fully done for this stage and must not be
	// invoked again for it (until the animation re-activates).
	TaskExit TaskResult = iota

	// TaskContinue means the handler wants to be invoked again for the
	// same stage (per-frame tasks return it from ANIME_LOOP).
	TaskContinue
)

// TaskContext carries the per-frame state a handler may read and, by
// convention, mutate only during its own stage.
type TaskContext struct {
	// Story is the owning story.
	Story *Story

	// Frame is the global frame position.
	Frame int

	// Local is the frame position within the owning scene.
	Local int

	// Args is the Story's shared mutable context object.
	Args map[string]any

	// Waits is the render's wait queue. A handler that must wait for an
	// external event registers an entry here instead of blocking.
	Waits *WaitQueue
}

// SetValue records a resolved property value for the current frame.
func (tc *TaskContext) SetValue(selector, property string, value any) {
	tc.Story.setFrameValue(selector, property, value)
}

// TaskHandler is a pure function of (context, animation, task, params,
// stage). Handlers needing asynchronous work register a WaitEntry on
// tc.Waits; the dispatcher treats the queue as "not yet complete" and the
// frame loop defers advancing until it drains.
type TaskHandler func(tc *TaskContext, anim *Animation, task *WorkTask, params Params, stage TaskStage) (TaskResult, error)

// TaskValidator checks a task's params at registration/build time, so
// malformed declarations fail before any frame renders.
type TaskValidator func(params Params) error

type registryEntry struct {
	handler  TaskHandler
	validate TaskValidator
}

// Registry maps task names to handlers. External plugins register before
// any dispatch referencing their name occurs. The registry is an explicit
// object passed at Story construction, never ambient global state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register binds a handler name. Duplicate names are rejected.
func (r *Registry) Register(name string, h TaskHandler) error {
	return r.RegisterValidated(name, h, nil)
}

// RegisterValidated binds a handler name together with a parameter
// validator.
func (r *Registry) RegisterValidated(name string, h TaskHandler, v TaskValidator) error {
	if name == "" {
		return NewConfigurationError("task name must not be empty")
	}
	if h == nil {
		return NewConfigurationError("task %q: handler must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return NewConfigurationError("task %q already registered", name)
	}
	r.entries[name] = registryEntry{handler: h, validate: v}
	return nil
}

// Resolve looks up a handler by name.
func (r *Registry) Resolve(name string) (TaskHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.handler, ok
}

// Validate runs the registered validator (if any) against params.
// An unknown name is a configuration error.
func (r *Registry) Validate(name string, params Params) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return NewConfigurationError("no handler registered for task %q", name)
	}
	if e.validate == nil {
		return nil
	}
	if err := e.validate(params); err != nil {
		return NewConfigurationError("task %q: %v", name, err)
	}
	return nil
}

// Names returns the registered handler names (unordered).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Dispatcher invokes task handlers through the multi-stage protocol and
// interprets their result codes.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over a registry.
func NewDispatcher(r *Registry) *Dispatcher {
	return &Dispatcher{registry: r}
}

// Dispatch invokes task's handler for stage. A stage the handler already
// exited is skipped. Handler errors propagate to the caller; the render
// loop decides whether they are fatal.
func (d *Dispatcher) Dispatch(tc *TaskContext, anim *Animation, task *WorkTask, stage TaskStage) error {
	if task.stageDone(stage) {
		return nil
	}
	h, ok := d.registry.Resolve(task.Handler)
	if !ok {
		return NewConfigurationError("no handler registered for task %q", task.Handler)
	}

	result, err := h(tc, anim, task, task.Params, stage)
	if err != nil {
		return fmt.Errorf("task %q stage %s: %w", task.Handler, stage, err)
	}
	if result == TaskExit {
		task.markDone(stage)
	}
	return nil
}
