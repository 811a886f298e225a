package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name string
		step int
		want int
	}{
		{"zero uses default", 0, 5},
		{"negative uses default", -3, 5},
		{"custom", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.step)
			if s.step != tt.want {
				t.Fatalf("step = %d, want %d", s.step, tt.want)
			}
		})
	}
}

func TestProgressSamplerEmitsOnStepBoundaries(t *testing.T) {
	s := NewProgressSampler(10)
	var emitted []int
	for _, p := range []int{0, 3, 9, 10, 11, 19, 25, 99, 100, 100} {
		if s.Observe(p) {
			emitted = append(emitted, p)
		}
	}
	want := []int{0, 10, 25, 99, 100}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted %v, want %v", emitted, want)
		}
	}
}

func TestProgressSamplerNilAndReset(t *testing.T) {
	var nilSampler *ProgressSampler
	if !nilSampler.Observe(50) {
		t.Fatal("nil sampler should always emit")
	}
	nilSampler.Reset()

	s := NewProgressSampler(5)
	s.Observe(50)
	if s.Observe(50) {
		t.Fatal("same bucket should not emit twice")
	}
	s.Reset()
	if !s.Observe(50) {
		t.Fatal("expected emit after reset")
	}
}
