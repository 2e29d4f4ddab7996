package telemetry

import (
	"slices"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		writes []int
		want   []int
	}{
		{"empty", 3, nil, nil},
		{"partial", 3, []int{1, 2}, []int{1, 2}},
		{"full", 3, []int{1, 2, 3}, []int{1, 2, 3}},
		{"wrapped", 3, []int{1, 2, 3, 4, 5}, []int{3, 4, 5}},
		{"wrapped twice", 2, []int{1, 2, 3, 4, 5}, []int{4, 5}},
		{"zero size", 0, []int{7, 8}, []int{8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRingBuffer[int](tt.size)
			for _, v := range tt.writes {
				r.Write(v)
			}
			got := r.Contents(nil)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Contents = %v, want %v", got, tt.want)
			}
			if r.Len() != len(tt.want) {
				t.Errorf("Len = %d, want %d", r.Len(), len(tt.want))
			}
			last, ok := r.Last()
			if ok != (len(tt.want) > 0) {
				t.Fatalf("Last ok = %v", ok)
			}
			if ok && last != tt.want[len(tt.want)-1] {
				t.Errorf("Last = %d, want %d", last, tt.want[len(tt.want)-1])
			}
		})
	}
}

func TestRingBufferReset(t *testing.T) {
	r := NewRingBuffer[float64](2)
	r.Write(1)
	r.Write(2)
	r.Reset()
	if r.Len() != 0 || len(r.Contents(nil)) != 0 {
		t.Errorf("buffer not empty after Reset")
	}
	if r.Cap() != 2 {
		t.Errorf("Cap = %d, want 2", r.Cap())
	}
}
