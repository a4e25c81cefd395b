package timeline

// Params is the mutable parameter bag a task carries between stage
// invocations. Tasks are stateless between invocations except through
// their params, which the handler may mutate.
type Params map[string]any

// Clone returns a shallow copy of the params.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// WorkTask is a named, registry-resolved unit of behavior invoked through
// the multi-stage dispatch protocol.
type WorkTask struct {
	// Handler names the task handler in the registry.
	Handler string

	// Params is passed to every stage invocation and may be mutated.
	Params Params

	// done records stages the handler has exited for the current
	// activation. A handler that returned TaskExit for a stage is never
	// re-invoked for that stage until the animation re-activates.
	done map[TaskStage]bool
}

// NewWorkTask creates a task bound to a registered handler name.
func NewWorkTask(handler string, params Params) *WorkTask {
	return &WorkTask{Handler: handler, Params: params}
}

func (t *WorkTask) stageDone(stage TaskStage) bool {
	return t.done[stage]
}

func (t *WorkTask) markDone(stage TaskStage) {
	if t.done == nil {
		t.done = make(map[TaskStage]bool, 3)
	}
	t.done[stage] = true
}

// resetStages clears per-activation stage state. Called when the owning
// animation becomes active, which is what makes the INIT-exactly-once
// guarantee hold per activation.
func (t *WorkTask) resetStages() {
	t.done = nil
}

// PropertyChange declares one animated property of the target element.
// From and To may be literals or "="-sigiled expressions resolved once per
// frame.
type PropertyChange struct {
	Name string
	From string
	To   string

	// Ease names an easing curve (see EaseByName). Empty means linear.
	Ease string
}

// Animation is a declarative bundle: a target selector, per-property
// declarations, and an ordered list of tasks. It is active for local scene
// frames in [Start, Start+Duration).
type Animation struct {
	Selector   string
	Start      int
	Duration   int
	Properties []PropertyChange
	Tasks      []*WorkTask
}

// End returns the first local frame past the animation.
func (a *Animation) End() int {
	return a.Start + a.Duration
}

// ActiveAt reports whether the animation is active at a local scene frame.
func (a *Animation) ActiveAt(local int) bool {
	return local >= a.Start && local < a.End()
}

func (a *Animation) resetStages() {
	for _, t := range a.Tasks {
		t.resetStages()
	}
}
