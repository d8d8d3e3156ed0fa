package layout

import (
	"github.com/BurntSushi/toml"

	"github.com/lodestar-viz/lodestar/pkg/errors"
)

// Tuning holds every simulation constant of the force kernel. The defaults
// are an aesthetic baseline, not physics; a TOML file can override any field:
//
//	repulsion = 50.0
//	spring = 0.1
//	damping = 0.85
type Tuning struct {
	// Repulsion scales the inverse-square node-node push.
	Repulsion float64 `toml:"repulsion"`

	// Spring scales the edge spring force.
	Spring float64 `toml:"spring"`

	// Gravity is the constant-magnitude per-pair attraction applied along
	// the third axis only. Ignored for two-dimensional layouts.
	Gravity float64 `toml:"gravity"`

	// Boundary scales the linear overlap penalty when two nodes intersect.
	Boundary float64 `toml:"boundary"`

	// RestLength is the target edge length at spring equilibrium.
	RestLength float64 `toml:"rest_length"`

	// Damping multiplies velocity every step; must be in (0, 1].
	Damping float64 `toml:"damping"`

	// Timestep is the initial integration step.
	Timestep float64 `toml:"timestep"`

	// MaxTimestep caps annealing growth.
	MaxTimestep float64 `toml:"max_timestep"`

	// AnnealAfter is the step count after which the timestep starts growing.
	AnnealAfter int `toml:"anneal_after"`

	// AnnealRate multiplies the timestep once per step past AnnealAfter.
	AnnealRate float64 `toml:"anneal_rate"`

	// NodeSize is the uniform collision radius per node.
	NodeSize float64 `toml:"node_size"`
}

// DefaultTuning returns the baseline constants.
func DefaultTuning() Tuning {
	return Tuning{
		Repulsion:   50.0,
		Spring:      0.1,
		Gravity:     0.05,
		Boundary:    2.0,
		RestLength:  30.0,
		Damping:     0.9,
		Timestep:    0.01,
		MaxTimestep: 0.05,
		AnnealAfter: 100,
		AnnealRate:  1.005,
		NodeSize:    1.0,
	}
}

// LoadTuning reads a TOML tuning file layered over the defaults.
// Validation failures and unknown keys fail fast.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	meta, err := toml.DecodeFile(path, &t)
	if err != nil {
		return Tuning{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode tuning %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Tuning{}, errors.New(errors.ErrCodeInvalidInput, "unknown tuning key %q in %s", undecoded[0].String(), path)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Validate checks that the constants describe a runnable simulation.
func (t Tuning) Validate() error {
	switch {
	case t.Damping <= 0 || t.Damping > 1:
		return errors.New(errors.ErrCodeInvalidInput, "damping must be in (0, 1], got %g", t.Damping)
	case t.Timestep <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "timestep must be positive, got %g", t.Timestep)
	case t.MaxTimestep < t.Timestep:
		return errors.New(errors.ErrCodeInvalidInput, "max_timestep %g below timestep %g", t.MaxTimestep, t.Timestep)
	case t.AnnealRate < 1:
		return errors.New(errors.ErrCodeInvalidInput, "anneal_rate must be at least 1, got %g", t.AnnealRate)
	case t.AnnealAfter < 0:
		return errors.New(errors.ErrCodeInvalidInput, "anneal_after must be non-negative, got %d", t.AnnealAfter)
	case t.RestLength <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "rest_length must be positive, got %g", t.RestLength)
	case t.NodeSize < 0:
		return errors.New(errors.ErrCodeInvalidInput, "node_size must be non-negative, got %g", t.NodeSize)
	}
	return nil
}

// isZero reports whether the tuning is the zero value, meaning the caller
// never set one and the defaults apply.
func (t Tuning) isZero() bool {
	return t == Tuning{}
}
