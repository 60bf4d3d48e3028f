// Package chime plays audible feedback for state machine notifications.
// Playback is fire-and-forget: Notify never blocks the control loop.
package chime

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/pool-heater/internal/gpio"
	"github.com/sweeney/pool-heater/internal/logic"
)

// Notifier receives at most one notification per control cycle.
type Notifier interface {
	Notify(n logic.Notification)
}

// Step is one segment of a tone pattern.
type Step struct {
	On bool
	D  time.Duration
}

// Patterns maps each notification to its buzzer sequence.
var Patterns = map[logic.Notification][]Step{
	logic.NotifySuccess: {
		{On: true, D: 80 * time.Millisecond},
		{On: false, D: 80 * time.Millisecond},
		{On: true, D: 80 * time.Millisecond},
		{On: false, D: 0},
	},
	logic.NotifyFailure: {
		{On: true, D: 600 * time.Millisecond},
		{On: false, D: 0},
	},
}

// Player drives a buzzer line from a background goroutine.
type Player struct {
	out   gpio.Output
	sleep func(time.Duration)

	mu     sync.Mutex
	closed bool
	queue  chan logic.Notification
	wg     sync.WaitGroup
}

// NewPlayer starts a player on out. Close stops it.
func NewPlayer(out gpio.Output) *Player {
	return newPlayer(out, time.Sleep)
}

func newPlayer(out gpio.Output, sleep func(time.Duration)) *Player {
	p := &Player{
		out:   out,
		sleep: sleep,
		queue: make(chan logic.Notification, 1),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Notify queues n for playback. If a pattern is already waiting, n is dropped.
func (p *Player) Notify(n logic.Notification) {
	if _, ok := Patterns[n]; !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- n:
	default:
		log.Printf("chime: busy, dropped %s", n)
	}
}

func (p *Player) run() {
	defer p.wg.Done()
	for n := range p.queue {
		for _, s := range Patterns[n] {
			if err := p.out.Set(s.On); err != nil {
				log.Printf("chime: %v", err)
				break
			}
			if s.D > 0 {
				p.sleep(s.D)
			}
		}
	}
}

// Close waits for queued patterns to finish, silences the buzzer and releases it.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.out.Set(false)
	return p.out.Close()
}

// LogNotifier logs notifications, for installs without a buzzer.
type LogNotifier struct{}

// Notify logs n unless it is NONE.
func (LogNotifier) Notify(n logic.Notification) {
	if n == logic.NotifyNone || n == "" {
		return
	}
	log.Printf("chime: %s", n)
}

// Recorder is a test double that records every notification.
type Recorder struct {
	mu    sync.Mutex
	Notes []logic.Notification
}

// Notify records n, including NONE.
func (r *Recorder) Notify(n logic.Notification) {
	r.mu.Lock()
	r.Notes = append(r.Notes, n)
	r.mu.Unlock()
}

// Count returns how many times n was recorded.
func (r *Recorder) Count(n logic.Notification) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, x := range r.Notes {
		if x == n {
			c++
		}
	}
	return c
}
