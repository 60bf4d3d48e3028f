// Command pool-heater runs the solar pool heater controller: it reads the pool
// and collector coil probes, drives the circulation pump and chimes on progress.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/pool-heater/internal/chime"
	"github.com/sweeney/pool-heater/internal/config"
	"github.com/sweeney/pool-heater/internal/display"
	"github.com/sweeney/pool-heater/internal/gpio"
	"github.com/sweeney/pool-heater/internal/logic"
	"github.com/sweeney/pool-heater/internal/sensor"
	"github.com/sweeney/pool-heater/internal/status"
	"github.com/sweeney/pool-heater/internal/web"
)

func main() {
	cfg, printState, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig builds the configuration from defaults, the optional -config
// file and finally any flags given explicitly on the command line.
func loadConfig(args []string) (config.Config, bool, error) {
	fs := flag.NewFlagSet("pool-heater", flag.ContinueOnError)

	// Flag values start from the defaults so -h shows them, but only flags
	// actually set are copied over the file.
	fl := config.Default()
	path := fs.String("config", "", "YAML config file (optional)")
	printState := fs.Bool("print-state", false, "Print current readings and exit")
	fs.DurationVar(&fl.Poll, "poll", fl.Poll, "Control loop interval")
	fs.DurationVar(&fl.Heartbeat, "heartbeat", fl.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.StringVar(&fl.HTTPAddr, "http", fl.HTTPAddr, "HTTP status address (empty to disable)")
	fs.IntVar(&fl.Pins.Pump, "pin-pump", fl.Pins.Pump, "BCM pin number for the pump relay")
	fs.IntVar(&fl.Pins.Buzzer, "pin-buzzer", fl.Pins.Buzzer, "BCM pin number for the buzzer (negative to disable)")
	fs.StringVar(&fl.Sensors.Pool, "pool-probe", fl.Sensors.Pool, "1-wire id of the pool probe")
	fs.StringVar(&fl.Sensors.Coil, "coil-probe", fl.Sensors.Coil, "1-wire id of the coil probe")
	fs.IntVar(&fl.CoilSetpoint, "coil-setpoint", fl.CoilSetpoint, "Coil temperature that counts as ready")
	fs.DurationVar(&fl.Timeouts.Wait, "wait", fl.Timeouts.Wait, "Dwell before rechecking a heated pool")
	fs.DurationVar(&fl.Timeouts.Heat, "heat", fl.Timeouts.Heat, "Dwell while the coil heats")
	fs.DurationVar(&fl.Timeouts.SmallHeat, "small-heat", fl.Timeouts.SmallHeat, "Dwell before rechecking a cold coil")
	fs.DurationVar(&fl.Timeouts.Pump, "pump", fl.Timeouts.Pump, "Length of one pump burst")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return config.Config{}, false, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Poll = fl.Poll
		case "heartbeat":
			cfg.Heartbeat = fl.Heartbeat
		case "http":
			cfg.HTTPAddr = fl.HTTPAddr
		case "pin-pump":
			cfg.Pins.Pump = fl.Pins.Pump
		case "pin-buzzer":
			cfg.Pins.Buzzer = fl.Pins.Buzzer
		case "pool-probe":
			cfg.Sensors.Pool = fl.Sensors.Pool
		case "coil-probe":
			cfg.Sensors.Coil = fl.Sensors.Coil
		case "coil-setpoint":
			cfg.CoilSetpoint = fl.CoilSetpoint
		case "wait":
			cfg.Timeouts.Wait = fl.Timeouts.Wait
		case "heat":
			cfg.Timeouts.Heat = fl.Timeouts.Heat
		case "small-heat":
			cfg.Timeouts.SmallHeat = fl.Timeouts.SmallHeat
		case "pump":
			cfg.Timeouts.Pump = fl.Timeouts.Pump
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *printState, nil
}

func run(cfg config.Config, printState bool) error {
	reader, err := sensor.NewW1Reader(cfg.Sensors.Dir, cfg.Sensors.Pool, cfg.Sensors.Coil, cfg.Sensors.Fahrenheit)
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}
	setpoint := sensor.NewSetpoint(sensor.IIODial{Path: cfg.ADCPath}, sensor.Scale{
		RawMin:   cfg.Dial.RawMin,
		RawMax:   cfg.Dial.RawMax,
		DegMin:   cfg.Dial.DegMin,
		DegMax:   cfg.Dial.DegMax,
		Inverted: cfg.Dial.Inverted,
	})

	// Print state mode
	if printState {
		pool, coil := reader.Read()
		fmt.Printf("POOL: %d/%d, COIL: %d/%d\n", pool, setpoint.Read(), coil, cfg.CoilSetpoint)
		return nil
	}

	pumpOut, err := gpio.NewRealOutput(gpio.Chip, cfg.Pins.Pump, "pump")
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	pump := gpio.NewPump(pumpOut)
	defer closeLogged("gpio: close pump", pump)

	var notifier chime.Notifier = chime.LogNotifier{}
	if cfg.Pins.Buzzer >= 0 {
		buzzer, err := gpio.NewRealOutput(gpio.Chip, cfg.Pins.Buzzer, "buzzer")
		if err != nil {
			log.Printf("chime: buzzer unavailable, logging notifications instead: %v", err)
		} else {
			player := chime.NewPlayer(buzzer)
			defer closeLogged("chime: close buzzer", player)
			notifier = player
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:          cfg.Poll.Milliseconds(),
		HeartbeatMs:     cfg.Heartbeat.Milliseconds(),
		WaitMs:          cfg.Timeouts.Wait.Milliseconds(),
		HeatMs:          cfg.Timeouts.Heat.Milliseconds(),
		SmallHeatMs:     cfg.Timeouts.SmallHeat.Milliseconds(),
		PumpMs:          cfg.Timeouts.Pump.Milliseconds(),
		CoilSetpoint:    cfg.CoilSetpoint,
		PrimedTolerance: cfg.PrimedTolerance,
		HTTPAddr:        cfg.HTTPAddr,
	})

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: poll=%v heartbeat=%v pump_pin=%d buzzer_pin=%d", cfg.Poll, cfg.Heartbeat, cfg.Pins.Pump, cfg.Pins.Buzzer)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	c := controller{
		reader:       reader,
		setpoint:     setpoint,
		machine:      logic.NewMachine(cfg.Timeouts.Logic(), cfg.PrimedTolerance),
		pump:         pump,
		notifier:     notifier,
		console:      display.NewConsole(os.Stdout),
		tracker:      tracker,
		coilSetpoint: cfg.CoilSetpoint,
		heartbeat:    cfg.Heartbeat,
	}
	return runLoop(c, time.Now, ticker.C, sigCh)
}

// controller bundles the collaborators of one control loop.
type controller struct {
	reader       sensor.Reader
	setpoint     *sensor.Setpoint
	machine      *logic.Machine
	pump         *gpio.Pump
	notifier     chime.Notifier
	console      *display.Console // nil disables the console panel
	tracker      *status.Tracker
	coilSetpoint int
	heartbeat    time.Duration
}

// runLoop initializes the machine and then runs one control cycle per tick
// until a signal arrives. An initialization failure is returned wrapped so
// the caller can treat it as fatal.
func runLoop(c controller, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	if err := c.machine.Initialize(startTime); err != nil {
		return fmt.Errorf("initialize state machine: %w", err)
	}
	log.Printf("status: %s", status.FormatStatusEvent(c.tracker.Snapshot(), "STARTUP", ""))

	lastHeartbeat := startTime
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if err := c.pump.Apply(false); err != nil {
				log.Printf("gpio: %v", err)
			}
			log.Printf("status: %s", status.FormatStatusEvent(c.tracker.Snapshot(), "SHUTDOWN", signalName(s)))
			return nil

		case <-tick:
			t := now()
			pool, coil := c.reader.Read()
			r := logic.Readings{
				PoolTemp:     pool,
				PoolSetpoint: c.setpoint.Read(),
				CoilTemp:     coil,
				CoilSetpoint: c.coilSetpoint,
			}

			res := c.machine.Tick(r, t)
			if res.Fired != nil {
				log.Printf("logic: %s -> %s on %s (pool=%d/%d coil=%d/%d)",
					res.Fired.From, res.Fired.To, trigger(*res.Fired),
					r.PoolTemp, r.PoolSetpoint, r.CoilTemp, r.CoilSetpoint)
			}

			if err := c.pump.Apply(res.Pump); err != nil {
				// Keep cycling; the next change retries the write
				log.Printf("gpio: %v", err)
			}
			if res.Notification != logic.NotifyNone {
				c.notifier.Notify(res.Notification)
			}
			if c.console != nil {
				f := display.Frame{
					Label:        res.Label,
					PoolTemp:     r.PoolTemp,
					PoolSetpoint: r.PoolSetpoint,
					CoilTemp:     r.CoilTemp,
					CoilSetpoint: r.CoilSetpoint,
					Pump:         res.Pump,
				}
				if err := c.console.Draw(f); err != nil {
					log.Printf("display: %v", err)
				}
			}
			c.tracker.Update(res, r, c.machine.Counts(), c.machine.EnteredAt())

			if c.heartbeat > 0 && t.Sub(lastHeartbeat) >= c.heartbeat {
				lastHeartbeat = t
				log.Printf("status: %s", status.FormatStatusEvent(c.tracker.Snapshot(), "HEARTBEAT", ""))
			}
		}
	}
}

// closeLogged closes c for a deferred cleanup, logging any error under what.
func closeLogged(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("%s: %v", what, err)
	}
}

func trigger(t logic.Transition) string {
	if t.Timed() {
		return "timeout " + t.After.String()
	}
	return string(t.Event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
