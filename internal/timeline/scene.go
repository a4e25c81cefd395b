package timeline

// Scene is an ordered container of animations spanning a contiguous frame
// range within the Story. Scenes are owned exclusively by their Story and
// identified by index (stable only until a scene is removed) plus an
// optional name used as a lookup key.
//
// The scene's global offset and frame count are recomputed together with
// the Story's total whenever the dirty flag is set; neither is trusted
// while the flag is up.
type Scene struct {
	// Name is an optional lookup key. Uniqueness is not enforced; lookup
	// returns the first match.
	Name string

	// Selector identifies the scene's root element for remote reproduction.
	Selector string

	// Markup is the scene's serialized markup, carried for teleportation.
	Markup string

	// Style holds the computed style sides a remote layout needs.
	Style map[string]string

	// DeclaredFrames is an explicit minimum frame count, letting a scene
	// outlast (or exist without) its animations.
	DeclaredFrames int

	// Animations in declaration order.
	Animations []*Animation

	// Computed by Story.FrameCount; see recount.
	storyFrameStart int
	frameCount      int
}

// FrameCount returns the scene's cached local frame count: the longest
// animation pipeline it owns, floored by DeclaredFrames. Valid only after
// the owning Story has recomputed (the Story recounts before every use).
func (s *Scene) FrameCount() int {
	return s.frameCount
}

// StoryFrameStart returns the scene's cached global frame offset: the sum
// of the frame counts of all preceding scenes.
func (s *Scene) StoryFrameStart() int {
	return s.storyFrameStart
}

// ContainsFrame reports whether a global frame position falls inside the
// scene's range.
func (s *Scene) ContainsFrame(global int) bool {
	return global >= s.storyFrameStart && global < s.storyFrameStart+s.frameCount
}

// computeFrameCount derives the local frame count from the animation
// pipeline.
func (s *Scene) computeFrameCount() int {
	count := s.DeclaredFrames
	for _, a := range s.Animations {
		if end := a.End(); end > count {
			count = end
		}
	}
	return count
}
