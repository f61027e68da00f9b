// Package rngtest provides a scripted rng.Source for forcing sampler outcomes.
package rngtest

// Scripted replays queued draws. When a queue runs dry it falls back to a
// fixed value: Float64 0.5, NormFloat64 0, ExpFloat64 1, IntN 0, Uint64 0.
type Scripted struct {
	Floats []float64
	Norms  []float64
	Exps   []float64
	Ints   []int
	Words  []uint64

	// FloatCalls counts Float64 draws, including fallbacks.
	FloatCalls int
}

func (s *Scripted) Float64() float64 {
	s.FloatCalls++
	if len(s.Floats) == 0 {
		return 0.5
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

func (s *Scripted) NormFloat64() float64 {
	if len(s.Norms) == 0 {
		return 0
	}
	v := s.Norms[0]
	s.Norms = s.Norms[1:]
	return v
}

func (s *Scripted) ExpFloat64() float64 {
	if len(s.Exps) == 0 {
		return 1
	}
	v := s.Exps[0]
	s.Exps = s.Exps[1:]
	return v
}

func (s *Scripted) IntN(n int) int {
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func (s *Scripted) Uint64() uint64 {
	if len(s.Words) == 0 {
		return 0
	}
	v := s.Words[0]
	s.Words = s.Words[1:]
	return v
}
