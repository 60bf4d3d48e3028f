package sensor

import "errors"

// Sample is one scripted pair of temperatures.
type Sample struct {
	Pool int
	Coil int
}

// FakeReader is a test double that returns scripted temperatures.
type FakeReader struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	index int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
// With no samples both probes read as disconnected.
func (f *FakeReader) Read() (int, int) {
	if len(f.Samples) == 0 {
		return PoolDisconnected, CoilDisconnected
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s.Pool, s.Coil
}

// FakeDial is a test double returning scripted raw dial values.
type FakeDial struct {
	Values []int
	index  int

	// Err, if set, will be returned by Raw()
	Err error
}

// Raw returns the next scripted value, repeating the last one.
func (f *FakeDial) Raw() (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.Values) == 0 {
		return 0, errors.New("no dial values configured")
	}
	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}
