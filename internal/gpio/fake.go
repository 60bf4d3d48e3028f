package gpio

import "sync"

// FakeOutput is a test double that records every value written.
// It is safe for concurrent use so the chime worker can drive it.
type FakeOutput struct {
	mu sync.Mutex

	// values is the history of Set calls.
	values []bool

	// closed tracks if Close was called
	closed bool

	// SetError, if set, will be returned by Set()
	SetError error

	// CloseError, if set, will be returned by Close()
	CloseError error
}

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the value.
func (f *FakeOutput) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.values = append(f.values, on)
	return nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	f.closed = true
	err := f.CloseError
	f.mu.Unlock()
	return err
}

// Values returns a copy of the recorded history.
func (f *FakeOutput) Values() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.values...)
}

// Value returns the last value written, false if none.
func (f *FakeOutput) Value() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return false
	}
	return f.values[len(f.values)-1]
}

// Closed reports whether Close was called.
func (f *FakeOutput) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded values.
func (f *FakeOutput) Reset() {
	f.mu.Lock()
	f.values = nil
	f.closed = false
	f.SetError = nil
	f.CloseError = nil
	f.mu.Unlock()
}
