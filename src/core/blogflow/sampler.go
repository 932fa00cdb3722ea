package blogflow

import (
	"math/rand/v2"
)

// DefaultReformatProbability is the share of sections sent through the reformat phase.
const DefaultReformatProbability = 0.25

// Sampler decides whether a freshly generated section is restyled.
type Sampler interface {
	ShouldReformat(sectionIndex int) bool
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(sectionIndex int) bool

func (f SamplerFunc) ShouldReformat(sectionIndex int) bool {
	return f(sectionIndex)
}

// RandomSampler reformats each section independently with the given probability.
type RandomSampler struct {
	Probability float64
}

func (s RandomSampler) ShouldReformat(int) bool {
	return rand.Float64() < s.Probability
}

// Always and Never are fixed samplers.
var (
	Always Sampler = SamplerFunc(func(int) bool { return true })
	Never  Sampler = SamplerFunc(func(int) bool { return false })
)
