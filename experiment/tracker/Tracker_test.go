package tracker

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/njmarsh/swingup/timestep"
)

// episode sends count timesteps with the argument reward through the
// trackers, with the final timestep marked as the episode's last
func episode(t *testing.T, trackers []Tracker, count int,
	reward float64) {
	t.Helper()

	obs := mat.NewVecDense(1, []float64{0})
	for i := 0; i < count; i++ {
		stepType := ts.Mid
		endType := ts.NotEnded
		if i == 0 {
			stepType = ts.First
		}
		if i == count-1 {
			stepType = ts.Last
			endType = ts.TerminalStateReached
		}

		r := reward
		if i == 0 {
			r = 0
		}
		step := ts.TimeStep{
			StepType:    stepType,
			EndType:     endType,
			Reward:      r,
			Discount:    1.0,
			Observation: obs,
			Number:      i,
		}
		for _, tracker := range trackers {
			tracker.Track(step)
		}
	}
}

func TestReturnTracksEpisodicReturn(t *testing.T) {
	r := NewReturn(filepath.Join(t.TempDir(), "return.bin"))

	episode(t, []Tracker{r}, 4, 1.0)
	episode(t, []Tracker{r}, 3, -2.0)

	returns := r.Data()
	if len(returns) != 2 {
		t.Fatalf("incorrect number of episodes \n\twant(2)\n\thave(%v)",
			len(returns))
	}
	if returns[0] != 3.0 {
		t.Errorf("incorrect first episode return \n\twant(3)"+
			"\n\thave(%v)", returns[0])
	}
	if returns[1] != -4.0 {
		t.Errorf("incorrect second episode return \n\twant(-4)"+
			"\n\thave(%v)", returns[1])
	}
}

func TestReturnSaveLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "return.bin")
	r := NewReturn(filename)

	episode(t, []Tracker{r}, 5, 2.0)
	r.Save()

	data, err := LoadData(filename)
	if err != nil {
		t.Fatalf("could not load saved data: %v", err)
	}
	if len(data) != 1 || data[0] != 8.0 {
		t.Errorf("loaded data does not match saved data "+
			"\n\twant([8])\n\thave(%v)", data)
	}
}

func TestEpisodeLength(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lengths.bin")
	e := NewEpisodeLength(filename)

	episode(t, []Tracker{e}, 4, 1.0)
	episode(t, []Tracker{e}, 7, 1.0)

	if len(e.episodeLengths) != 2 {
		t.Fatalf("incorrect number of episodes \n\twant(2)\n\thave(%v)",
			len(e.episodeLengths))
	}
	if e.episodeLengths[0] != 3 || e.episodeLengths[1] != 6 {
		t.Errorf("incorrect episode lengths: %v", e.episodeLengths)
	}
}
