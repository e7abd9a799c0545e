package main

import (
	"slices"
	"testing"
)

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"alpha=0.02, 0.05", "drift=0"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"alpha", "drift"}) {
		t.Errorf("unexpected names %v", names)
	}
	if !slices.Equal(ranges[0], []float64{0.02, 0.05}) || !slices.Equal(ranges[1], []float64{0}) {
		t.Errorf("unexpected ranges %v", ranges)
	}

	for _, bad := range []string{"alpha", "alpha=x", "alpha=0.1,"} {
		if _, _, err := parseGrid([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]float64{"spread": 1, "attracted": 2, "convergence": 3})
	if !slices.Equal(got, []string{"attracted", "convergence", "spread"}) {
		t.Errorf("unexpected order %v", got)
	}
}
