package utils

import (
	"math"
	"testing"
)

func TestWiden(t *testing.T) {
	got := Widen([]float32{1, -0.5, 3})
	want := []float64{1, -0.5, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Widen[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(Widen(nil)) != 0 {
		t.Error("Widen(nil) should be empty")
	}
}

func TestNormalizeL2(t *testing.T) {
	x := []float64{3, 4}
	if norm := NormalizeL2(x); norm != 5 {
		t.Errorf("norm = %v, want 5", norm)
	}
	if math.Abs(x[0]-0.6) > 1e-12 || math.Abs(x[1]-0.8) > 1e-12 {
		t.Errorf("normalized = %v", x)
	}

	zero := []float64{0, 0}
	if norm := NormalizeL2(zero); norm != 0 || zero[0] != 0 {
		t.Errorf("zero vector changed: norm=%v x=%v", norm, zero)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite([]float64{1, 2}) {
		t.Error("expected finite")
	}
	if IsFinite([]float64{1, math.NaN()}) || IsFinite([]float64{math.Inf(-1)}) {
		t.Error("expected non-finite")
	}
}
