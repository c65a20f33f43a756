package game

import (
	"errors"
	"sync"
	"time"

	"github.com/geezlabs/geez-bingo/utils/logger"
)

// AutoCaller drives Call on a fixed interval while a round is running. It is
// just another caller of Engine.Call: the engine mutex serializes it against
// manual /call commands, so a racing manual call simply wins the draw and the
// timer's attempt is rejected or naturally serialized behind it.
type AutoCaller struct {
	engine   *Engine
	actorID  int64
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

func NewAutoCaller(engine *Engine, actorID int64, interval time.Duration) *AutoCaller {
	return &AutoCaller{
		engine:   engine,
		actorID:  actorID,
		interval: interval,
	}
}

// Start launches the ticker loop. Starting an already-running caller is a
// no-op.
func (a *AutoCaller) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	a.stop = make(chan struct{})
	go a.loop(a.stop)
}

// Stop halts the ticker. Idempotent: stopping a stopped caller is a no-op.
func (a *AutoCaller) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.running = false
	close(a.stop)
}

// Running reports whether the ticker loop is live.
func (a *AutoCaller) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *AutoCaller) loop(stop chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// The round may have ended between ticks; don't fire into a
			// stale one.
			if !a.engine.Active() {
				a.Stop()
				return
			}
			res, err := a.engine.Call(a.actorID)
			switch {
			case errors.Is(err, ErrExhausted):
				a.Stop()
				return
			case errors.Is(err, ErrInvalidState):
				a.Stop()
				return
			case err != nil:
				logger.Errorf("auto-call failed: %v", err)
			case len(res.Winners) > 0:
				a.Stop()
				return
			}
		}
	}
}
