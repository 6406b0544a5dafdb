package floatutils

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	if got := Clip(5.0, -1.0, 1.0); got != 1.0 {
		t.Errorf("value above max was not clipped \n\twant(1)"+
			"\n\thave(%v)", got)
	}
	if got := Clip(-5.0, -1.0, 1.0); got != -1.0 {
		t.Errorf("value below min was not clipped \n\twant(-1)"+
			"\n\thave(%v)", got)
	}
	if got := Clip(0.5, -1.0, 1.0); got != 0.5 {
		t.Errorf("value within bounds was changed \n\twant(0.5)"+
			"\n\thave(%v)", got)
	}
}

func TestClipInterval(t *testing.T) {
	interval := r1.Interval{Min: -2.0, Max: 2.0}
	if got := ClipInterval(3.0, interval); got != 2.0 {
		t.Errorf("value above interval was not clipped \n\twant(2)"+
			"\n\thave(%v)", got)
	}
	if got := ClipInterval(-3.0, interval); got != -2.0 {
		t.Errorf("value below interval was not clipped \n\twant(-2)"+
			"\n\thave(%v)", got)
	}
}

func TestArgMax(t *testing.T) {
	indices := ArgMax(1.0, 3.0, 2.0)
	if len(indices) != 1 || indices[0] != 1 {
		t.Errorf("incorrect argmax \n\twant([1])\n\thave(%v)", indices)
	}

	// Ties return every maximal index
	indices = ArgMax(3.0, 1.0, 3.0)
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Errorf("incorrect argmax with ties \n\twant([0 2])"+
			"\n\thave(%v)", indices)
	}
}

func TestMinMax(t *testing.T) {
	if got := Min(3.0, -1.0, 2.0); got != -1.0 {
		t.Errorf("incorrect minimum \n\twant(-1)\n\thave(%v)", got)
	}
	if got := Max(3.0, -1.0, 2.0); got != 3.0 {
		t.Errorf("incorrect maximum \n\twant(3)\n\thave(%v)", got)
	}
}

func TestOnes(t *testing.T) {
	ones := Ones(4)
	if len(ones) != 4 {
		t.Fatalf("incorrect length \n\twant(4)\n\thave(%v)", len(ones))
	}
	for i, one := range ones {
		if one != 1.0 {
			t.Errorf("incorrect value at index %v \n\twant(1)"+
				"\n\thave(%v)", i, one)
		}
	}
}
