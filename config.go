package flows

import "github.com/unixpickle/num-analysis/linalg"

// A Config is an ordered set of points in R^d, where each
// point carries a position and zero or more augmented
// coordinates (also in R^d).
//
// Coordinates are stored channel-major: Channels[0] holds
// the positions, and Channels[1:] hold the augmented
// coordinates, one vector per point in each channel.
type Config struct {
	Dims     int
	Channels [][]linalg.Vector
}

// NewConfig creates a zero-valued configuration with the
// given number of points and channels (including the
// position channel).
func NewConfig(dims, points, channels int) *Config {
	if dims <= 0 || points <= 0 || channels <= 0 {
		panic("dimensions, points, and channels must be positive")
	}
	res := &Config{Dims: dims, Channels: make([][]linalg.Vector, channels)}
	for ch := range res.Channels {
		res.Channels[ch] = make([]linalg.Vector, points)
		for i := range res.Channels[ch] {
			res.Channels[ch][i] = make(linalg.Vector, dims)
		}
	}
	return res
}

// NumPoints returns the number of points.
func (c *Config) NumPoints() int {
	return len(c.Channels[0])
}

// NumChannels returns the number of channels, including
// the position channel.
func (c *Config) NumChannels() int {
	return len(c.Channels)
}

// Positions returns the position channel.
func (c *Config) Positions() []linalg.Vector {
	return c.Channels[0]
}

// Copy creates a deep copy of the configuration.
func (c *Config) Copy() *Config {
	res := &Config{Dims: c.Dims, Channels: make([][]linalg.Vector, len(c.Channels))}
	for ch, vecs := range c.Channels {
		res.Channels[ch] = make([]linalg.Vector, len(vecs))
		for i, v := range vecs {
			res.Channels[ch][i] = v.Copy()
		}
	}
	return res
}

// assertShape panics unless the configuration has the
// given dimensionality, point count, and channel count.
func (c *Config) assertShape(dims, points, channels int) {
	if c.Dims != dims || c.NumPoints() != points || c.NumChannels() != channels {
		panic("configuration shape mismatch")
	}
	for _, vecs := range c.Channels {
		if len(vecs) != points {
			panic("configuration shape mismatch")
		}
		for _, v := range vecs {
			if len(v) != dims {
				panic("configuration shape mismatch")
			}
		}
	}
}
