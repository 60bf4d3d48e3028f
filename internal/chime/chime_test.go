package chime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/pool-heater/internal/gpio"
	"github.com/sweeney/pool-heater/internal/logic"
)

func noSleep(time.Duration) {}

func TestPlayerSuccessPattern(t *testing.T) {
	out := gpio.NewFakeOutput()
	p := newPlayer(out, noSleep)

	p.Notify(logic.NotifySuccess)
	require.NoError(t, p.Close())

	assert.Equal(t, []bool{true, false, true, false, false}, out.Values())
	assert.True(t, out.Closed())
}

func TestPlayerFailurePattern(t *testing.T) {
	out := gpio.NewFakeOutput()
	p := newPlayer(out, noSleep)

	p.Notify(logic.NotifyFailure)
	require.NoError(t, p.Close())

	assert.Equal(t, []bool{true, false, false}, out.Values())
}

func TestPlayerIgnoresNone(t *testing.T) {
	out := gpio.NewFakeOutput()
	p := newPlayer(out, noSleep)

	p.Notify(logic.NotifyNone)
	require.NoError(t, p.Close())

	assert.Equal(t, []bool{false}, out.Values(), "only the silencing write on Close")
}

func TestPlayerNotifyNeverBlocks(t *testing.T) {
	out := gpio.NewFakeOutput()
	release := make(chan struct{})
	p := newPlayer(out, func(time.Duration) { <-release })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Notify(logic.NotifySuccess)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked while a pattern was playing")
	}

	close(release)
	require.NoError(t, p.Close())
}

func TestPlayerNotifyAfterClose(t *testing.T) {
	p := newPlayer(gpio.NewFakeOutput(), noSleep)
	require.NoError(t, p.Close())

	assert.NotPanics(t, func() { p.Notify(logic.NotifySuccess) })
	assert.NoError(t, p.Close(), "second Close is a no-op")
}

func TestPlayerStopsPatternOnError(t *testing.T) {
	out := gpio.NewFakeOutput()
	out.SetError = errors.New("line gone")
	p := newPlayer(out, noSleep)

	p.Notify(logic.NotifySuccess)
	p.Close()
	assert.Empty(t, out.Values())
}

func TestPlayerCloseReportsLineError(t *testing.T) {
	out := gpio.NewFakeOutput()
	out.CloseError = errors.New("line busy")
	p := newPlayer(out, noSleep)

	assert.ErrorIs(t, p.Close(), out.CloseError)
	assert.True(t, out.Closed())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify(logic.NotifySuccess)
	r.Notify(logic.NotifyNone)
	r.Notify(logic.NotifySuccess)

	assert.Equal(t, 2, r.Count(logic.NotifySuccess))
	assert.Equal(t, 1, r.Count(logic.NotifyNone))
	assert.Equal(t, 0, r.Count(logic.NotifyFailure))
}

func TestLogNotifier(t *testing.T) {
	var n Notifier = LogNotifier{}
	assert.NotPanics(t, func() {
		n.Notify(logic.NotifySuccess)
		n.Notify(logic.NotifyNone)
	})
}
