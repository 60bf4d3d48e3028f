package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/pool-heater/internal/chime"
	"github.com/sweeney/pool-heater/internal/display"
	"github.com/sweeney/pool-heater/internal/gpio"
	"github.com/sweeney/pool-heater/internal/logic"
	"github.com/sweeney/pool-heater/internal/sensor"
	"github.com/sweeney/pool-heater/internal/status"
)

var startTime = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

var stockDial = sensor.Scale{RawMin: 0, RawMax: 1023, DegMin: 50, DegMax: 90, Inverted: true}

// plant wires the real components to fake hardware, the way main does.
type plant struct {
	reader   sensor.Reader
	dial     *sensor.FakeDial
	setpoint *sensor.Setpoint
	machine  *logic.Machine
	pumpOut  *gpio.FakeOutput
	pump     *gpio.Pump
	notes    *chime.Recorder
	screen   *bytes.Buffer
	console  *display.Console
	tracker  *status.Tracker
}

func newPlant(t *testing.T, samples []sensor.Sample, timeouts logic.Timeouts) *plant {
	t.Helper()
	p := &plant{
		reader:   sensor.NewFakeReader(samples),
		dial:     &sensor.FakeDial{Values: []int{511}}, // 70 degrees
		machine:  logic.NewMachine(timeouts, logic.DefaultPrimedTolerance),
		pumpOut:  gpio.NewFakeOutput(),
		notes:    &chime.Recorder{},
		screen:   &bytes.Buffer{},
		tracker:  status.NewTracker(startTime, status.Config{CoilSetpoint: 90, PumpMs: timeouts.Pump.Milliseconds()}),
	}
	p.setpoint = sensor.NewSetpoint(p.dial, stockDial)
	p.pump = gpio.NewPump(p.pumpOut)
	p.console = display.NewConsole(p.screen)
	if err := p.machine.Initialize(startTime); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return p
}

// cycle runs one control cycle at now, mirroring the daemon's loop.
func (p *plant) cycle(t *testing.T, now time.Time) logic.Result {
	t.Helper()
	pool, coil := p.reader.Read()
	r := logic.Readings{PoolTemp: pool, PoolSetpoint: p.setpoint.Read(), CoilTemp: coil, CoilSetpoint: 90}

	res := p.machine.Tick(r, now)
	if err := p.pump.Apply(res.Pump); err != nil {
		t.Fatalf("pump: %v", err)
	}
	if res.Notification != logic.NotifyNone {
		p.notes.Notify(res.Notification)
	}
	if err := p.console.Draw(display.Frame{
		Label:        res.Label,
		PoolTemp:     r.PoolTemp,
		PoolSetpoint: r.PoolSetpoint,
		CoilTemp:     r.CoilTemp,
		CoilSetpoint: r.CoilSetpoint,
		Pump:         res.Pump,
	}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	p.tracker.Update(res, r, p.machine.Counts(), p.machine.EnteredAt())
	return res
}

var quick = logic.Timeouts{
	Wait:      10 * time.Second,
	Heat:      3 * time.Second,
	SmallHeat: 2 * time.Second,
	Pump:      2 * time.Second,
}

// TestIntegrationHeatingCycle runs a cold pool through heating, one pump
// burst and back to waiting.
func TestIntegrationHeatingCycle(t *testing.T) {
	samples := []sensor.Sample{
		{Pool: 60, Coil: 70}, // 1s  CHECK_POOL -> HEAT
		{Pool: 60, Coil: 80}, // 2s
		{Pool: 60, Coil: 85}, // 3s
		{Pool: 60, Coil: 88}, // 4s  HEAT -> CHECK_COIL
		{Pool: 60, Coil: 88}, // 5s  CHECK_COIL -> SMALL_HEAT (not ready)
		{Pool: 60, Coil: 90}, // 6s
		{Pool: 60, Coil: 92}, // 7s  SMALL_HEAT -> CHECK_COIL
		{Pool: 60, Coil: 92}, // 8s  CHECK_COIL -> CHECK_PRIMED
		{Pool: 60, Coil: 92}, // 9s  CHECK_PRIMED -> PUMP
		{Pool: 61, Coil: 70}, // 10s
		{Pool: 61, Coil: 62}, // 11s PUMP -> CHECK_PRIMED
		{Pool: 61, Coil: 62}, // 12s CHECK_PRIMED -> WAIT
	}
	p := newPlant(t, samples, quick)

	var path []logic.State
	for i := range samples {
		res := p.cycle(t, startTime.Add(time.Duration(i+1)*time.Second))
		if res.Fired != nil {
			path = append(path, res.State)
		}
	}

	want := []logic.State{
		logic.StateHeat,
		logic.StateCheckCoil,
		logic.StateSmallHeat,
		logic.StateCheckCoil,
		logic.StateCheckPrimed,
		logic.StatePump,
		logic.StateCheckPrimed,
		logic.StateWait,
	}
	if len(path) != len(want) {
		t.Fatalf("path: got %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("step %d: got %s, want %s", i, path[i], want[i])
		}
	}

	// CHECK_POOL->HEAT, HEAT->CHECK_COIL, CHECK_COIL->CHECK_PRIMED,
	// CHECK_PRIMED->PUMP, CHECK_PRIMED->WAIT
	if n := p.notes.Count(logic.NotifySuccess); n != 5 {
		t.Errorf("expected 5 SUCCESS, got %d", n)
	}
	if p.pumpOut.Value() {
		t.Error("pump should be off after priming")
	}

	screen := p.screen.String()
	for _, label := range []string{logic.LabelHeat, logic.LabelPump, logic.LabelWait} {
		if !strings.Contains(screen, label) {
			t.Errorf("display never showed %q", label)
		}
	}
}

// TestIntegrationStatusJSON checks the tracker's JSON after a burst.
func TestIntegrationStatusJSON(t *testing.T) {
	p := newPlant(t, []sensor.Sample{{Pool: 60, Coil: 95}}, quick)

	now := startTime
	for i := 0; i < 6; i++ {
		now = now.Add(time.Second)
		p.cycle(t, now)
	}
	if p.machine.State() != logic.StatePump {
		t.Fatalf("expected PUMP, got %s", p.machine.State())
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(p.tracker.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.State != "PUMP" || !sj.Status.Pump {
		t.Errorf("got state=%s pump=%v, want PUMP with pump on", sj.Status.State, sj.Status.Pump)
	}
	if sj.Status.Label != logic.LabelPump {
		t.Errorf("Label: got %q", sj.Status.Label)
	}
	if sj.Status.Temperatures.PoolSetpoint != 70 {
		t.Errorf("PoolSetpoint: got %d, want 70", sj.Status.Temperatures.PoolSetpoint)
	}
	if sj.Status.Counts.PumpBursts != 1 {
		t.Errorf("PumpBursts: got %d, want 1", sj.Status.Counts.PumpBursts)
	}
}

// TestIntegrationPumpFollowsState drives the plant with noisy readings and
// checks the pump line matches the PUMP state after every cycle and each
// burst ends within one cycle of the burst length.
func TestIntegrationPumpFollowsState(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := make([]sensor.Sample, 5000)
	for i := range samples {
		samples[i] = sensor.Sample{Pool: 55 + rng.Intn(30), Coil: 50 + rng.Intn(60)}
		if rng.Intn(50) == 0 {
			samples[i].Coil = sensor.CoilDisconnected
		}
	}
	p := newPlant(t, samples, quick)

	poll := 250 * time.Millisecond
	now := startTime
	var burstStart time.Time
	for range samples {
		now = now.Add(poll)
		res := p.cycle(t, now)

		inPump := res.State == logic.StatePump
		if p.pumpOut.Value() != inPump {
			t.Fatalf("%v: pump line %v in state %s", now, p.pumpOut.Value(), res.State)
		}
		if inPump && res.Fired != nil {
			burstStart = now
		}
		if inPump && now.Sub(burstStart) > quick.Pump+poll {
			t.Fatalf("%v: burst running %v", now, now.Sub(burstStart))
		}
	}

	if p.machine.Counts().PumpBursts == 0 {
		t.Error("expected at least one burst in the simulation")
	}
}

// TestIntegrationProbeFaultNeverPumps feeds probe sentinels through the full
// loop, starting both idle and in the middle of a burst.
func TestIntegrationProbeFaultNeverPumps(t *testing.T) {
	faults := []struct {
		name string
		s    sensor.Sample
	}{
		{"pool", sensor.Sample{Pool: sensor.PoolDisconnected, Coil: 95}},
		{"coil", sensor.Sample{Pool: 60, Coil: sensor.CoilDisconnected}},
		{"both", sensor.Sample{Pool: sensor.PoolDisconnected, Coil: sensor.CoilDisconnected}},
	}

	for _, f := range faults {
		t.Run(f.name, func(t *testing.T) {
			// Six good cycles reach PUMP (see TestIntegrationStatusJSON).
			samples := []sensor.Sample{{Pool: 60, Coil: 95}, {Pool: 60, Coil: 95}, {Pool: 60, Coil: 95},
				{Pool: 60, Coil: 95}, {Pool: 60, Coil: 95}, {Pool: 60, Coil: 95}, f.s}
			p := newPlant(t, samples, quick)

			now := startTime
			for i := 0; i < 6; i++ {
				now = now.Add(time.Second)
				p.cycle(t, now)
			}
			if p.machine.State() != logic.StatePump {
				t.Fatalf("setup: expected PUMP, got %s", p.machine.State())
			}

			// The running burst ends on its timer; the fault then holds.
			for i := 0; i < 2000; i++ {
				now = now.Add(250 * time.Millisecond)
				p.cycle(t, now)
			}
			if n := p.machine.Counts().PumpBursts; n != 1 {
				t.Errorf("PumpBursts: got %d, want 1", n)
			}
			if p.pumpOut.Value() {
				t.Error("pump line left on")
			}
		})
	}
}

// TestIntegrationUnpluggedProbes reads through W1Reader with no probes
// present at all.
func TestIntegrationUnpluggedProbes(t *testing.T) {
	p := newPlant(t, nil, quick)
	w1, err := sensor.NewW1Reader(t.TempDir(), "28-000005e2fdc3", "28-000005e2a1b7", true)
	if err != nil {
		t.Fatalf("NewW1Reader: %v", err)
	}
	p.reader = w1

	now := startTime
	for i := 0; i < 2000; i++ {
		now = now.Add(250 * time.Millisecond)
		res := p.cycle(t, now)
		if res.Pump {
			t.Fatalf("cycle %d: pump on with no probes in %s", i, res.State)
		}
	}
	if p.machine.State() != logic.StateWait && p.machine.State() != logic.StateCheckPool {
		t.Errorf("expected to idle between WAIT and CHECK_POOL, got %s", p.machine.State())
	}
	if !strings.Contains(p.screen.String(), "--") {
		t.Error("display should show unreadable probes as --")
	}
}

// TestIntegrationDialFailureHoldsSetpoint keeps heating against the last good
// setpoint once the dial stops answering.
func TestIntegrationDialFailureHoldsSetpoint(t *testing.T) {
	p := newPlant(t, []sensor.Sample{{Pool: 65, Coil: 60}}, quick)

	p.cycle(t, startTime.Add(time.Second))
	if p.machine.State() != logic.StateHeat {
		t.Fatalf("65 < 70 should heat, got %s", p.machine.State())
	}

	p.dial.Err = errors.New("adc gone")
	p.cycle(t, startTime.Add(2*time.Second))

	snap := p.tracker.Snapshot()
	if snap.Readings.PoolSetpoint != 70 {
		t.Errorf("setpoint should hold at 70, got %d", snap.Readings.PoolSetpoint)
	}
}

// TestIntegrationChime plays a real pattern on a fake buzzer line.
func TestIntegrationChime(t *testing.T) {
	p := newPlant(t, []sensor.Sample{{Pool: 75, Coil: 60}}, quick)
	buzzer := gpio.NewFakeOutput()
	player := chime.NewPlayer(buzzer)

	res := p.cycle(t, startTime.Add(time.Second))
	if res.Notification != logic.NotifySuccess {
		t.Fatalf("expected SUCCESS entering WAIT, got %s", res.Notification)
	}
	player.Notify(res.Notification)

	if err := player.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := buzzer.Values()
	want := []bool{true, false, true, false, false}
	if len(got) != len(want) {
		t.Fatalf("buzzer writes: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if !buzzer.Closed() {
		t.Error("buzzer line should be closed")
	}
}
