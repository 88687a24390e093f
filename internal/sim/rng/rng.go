// Package rng is the random source the simulation draws from. Every chance roll
// in the engine consumes exactly one Float64, and every uniform pick one IntN.
package rng

import "math/rand/v2"

type Source interface {
	// Float64 returns a draw in [0,1).
	Float64() float64
	// IntN returns a draw in [0,n). n must be > 0.
	IntN(n int) int
}

type PCG struct {
	r *rand.Rand
}

func New(seed uint64) *PCG {
	return &PCG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *PCG) Float64() float64 { return p.r.Float64() }
func (p *PCG) IntN(n int) int   { return p.r.IntN(n) }

// Script replays a fixed list of draws, then keeps returning Rest.
// IntN maps the next draw onto [0,n), so a scripted 0.5 picks the middle element.
type Script struct {
	Draws []float64
	Rest  float64

	used int
}

func NewScript(rest float64, draws ...float64) *Script {
	return &Script{Draws: draws, Rest: rest}
}

func (s *Script) Float64() float64 {
	if s.used < len(s.Draws) {
		v := s.Draws[s.used]
		s.used++
		return v
	}
	s.used++
	return s.Rest
}

func (s *Script) IntN(n int) int {
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Used reports how many draws have been consumed.
func (s *Script) Used() int { return s.used }
