// Package spectrum turns live or decoded audio into byte frequency magnitudes.
package spectrum

import "io"

// Sample is one spectrum frame: a fixed number of byte magnitudes, lowest
// frequency first.
type Sample []byte

// FrequencyProvider returns the current spectrum on demand. ok is false until
// the provider has audio to analyse.
type FrequencyProvider interface {
	Sample() (s Sample, ok bool)
}

// Close releases p if it holds audio resources.
func Close(p FrequencyProvider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Constant always returns the same sample. Useful for headless runs and tests.
type Constant Sample

func (c Constant) Sample() (Sample, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return Sample(c), true
}

// Uniform returns a sample of n bins all set to v.
func Uniform(n int, v byte) Sample {
	s := make(Sample, n)
	for i := range s {
		s[i] = v
	}
	return s
}
