package plot

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSmooth(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := Smooth(values, 3)
	want := []float64{1, 1.5, 2, 3, 4}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("incorrect smoothed value at index %v"+
				"\n\twant(%v)\n\thave(%v)", i, want[i], got[i])
		}
	}
}

func TestSmoothWindowOne(t *testing.T) {
	values := []float64{3, 1, 4}
	got := Smooth(values, 1)
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("window of 1 should not change values"+
				"\n\twant(%v)\n\thave(%v)", values[i], got[i])
		}
	}
}

func TestLearningCurveWritesPNG(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "curve.png")

	returns := make([]float64, 50)
	for i := range returns {
		returns[i] = float64(i) - 25
	}

	err := LearningCurve(filename, "Test", 5,
		Series{Label: "agent", Values: returns, R: 0.8},
	)
	if err != nil {
		t.Fatalf("could not render learning curve: %v", err)
	}

	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("figure was not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("figure file is empty")
	}
}

// TestLearningCurveSingleEpisode checks that a series holding a
// single episodic return still renders to a valid figure.
func TestLearningCurveSingleEpisode(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "curve.png")

	err := LearningCurve(filename, "Test", 5,
		Series{Label: "agent", Values: []float64{-100}, B: 0.8},
	)
	if err != nil {
		t.Fatalf("could not render single-episode series: %v", err)
	}

	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("figure was not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("figure file is empty")
	}
}

func TestLearningCurveNoData(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "curve.png")

	if err := LearningCurve(filename, "Test", 5); err == nil {
		t.Error("expected rendering with no series to fail")
	}
	err := LearningCurve(filename, "Test", 5, Series{Label: "empty"})
	if err == nil {
		t.Error("expected rendering an empty series to fail")
	}
}
