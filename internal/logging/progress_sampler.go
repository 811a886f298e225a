package logging

// ProgressSampler suppresses repetitive progress updates while preserving
// signal when the percentage crosses a step boundary. It is not safe for
// concurrent use; create one per running item.
type ProgressSampler struct {
	step     int
	lastStep int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// step boundaries (default 5%).
func NewProgressSampler(step int) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, lastStep: -1}
}

// Observe reports whether percent should be emitted. Values outside 0..100
// are clamped; 100 always emits once.
func (s *ProgressSampler) Observe(percent int) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	bucket := percent / s.step
	if percent == 100 {
		bucket = 100/s.step + 1
	}
	if bucket <= s.lastStep {
		return false
	}
	s.lastStep = bucket
	return true
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStep = -1
}
