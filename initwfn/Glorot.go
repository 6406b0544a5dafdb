package initwfn

import G "gorgonia.org/gorgonia"

// Glorot initialization comes in a uniform and a normal variant. Both
// are parameterized by a single gain that scales the sampled weights.

// GlorotUConfig describes Glorot initialization with weights drawn
// from a uniform distribution
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a Glorot Uniform weight initializer with the
// argument gain
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns the type of initialization the configuration describes
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns the described initialization as a Gorgonia InitWFn
func (g GlorotUConfig) Create() G.InitWFn {
	return G.GlorotU(g.Gain)
}

// GlorotNConfig describes Glorot initialization with weights drawn
// from a normal distribution
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a Glorot Normal weight initializer with the
// argument gain
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// Type returns the type of initialization the configuration describes
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Create returns the described initialization as a Gorgonia InitWFn
func (g GlorotNConfig) Create() G.InitWFn {
	return G.GlorotN(g.Gain)
}
