package compute

import (
	"sync/atomic"
	"testing"
)

func TestParallelForCoversRange(t *testing.T) {
	tests := []struct {
		name     string
		backend  Backend
		n        int
		minChunk int
	}{
		{"serial", SerialBackend{}, 1000, 10},
		{"cpu small", NewCPUBackend(4), 7, 100},
		{"cpu exact", NewCPUBackend(4), 4000, 1000},
		{"cpu uneven", NewCPUBackend(3), 15000, 512},
		{"cpu many workers", NewCPUBackend(64), 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			tt.backend.ParallelFor(tt.n, tt.minChunk, func(worker, start, end int) {
				if worker < 0 || worker >= tt.backend.Workers() {
					t.Errorf("worker index %d out of range", worker)
				}
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestParallelForEmpty(t *testing.T) {
	called := false
	NewCPUBackend(4).ParallelFor(0, 1, func(_, _, _ int) { called = true })
	SerialBackend{}.ParallelFor(0, 1, func(_, _, _ int) { called = true })
	if called {
		t.Error("expected no calls for empty range")
	}
}

func TestByName(t *testing.T) {
	if b, ok := ByName("serial", 0); !ok || b.Name() != "serial" {
		t.Errorf("expected serial backend, got %v", b)
	}
	if b, ok := ByName("cpu", 2); !ok || b.Workers() != 2 {
		t.Errorf("expected cpu backend with 2 workers, got %v", b)
	}
	if _, ok := ByName("cuda", 0); ok {
		t.Error("expected unknown backend to fail")
	}
}
