package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
)

// DefaultAutosaveDelay is how long edits settle before a draft is written
const DefaultAutosaveDelay = time.Second

// ErrAutosaverClosed is returned by Schedule after Close
var ErrAutosaverClosed = errors.New("autosaver is closed")

// SaveFunc persists a draft shipment for a transaction
type SaveFunc func(ctx context.Context, id string, shipment entities.Shipment) error

type pendingSave struct {
	shipment entities.Shipment
	gen      uint64
	timer    *time.Timer
}

// Autosaver debounces draft saves per transaction. Each Schedule call restarts
// the delay; only the latest shipment is written.
type Autosaver struct {
	save   SaveFunc
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingSave
	gen     uint64
	closed  bool
	wg      sync.WaitGroup
}

// NewAutosaver creates an autosaver; a non-positive delay uses DefaultAutosaveDelay
func NewAutosaver(save SaveFunc, delay time.Duration, logger *zap.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{
		save:    save,
		delay:   delay,
		logger:  loggerOrNop(logger),
		pending: make(map[string]*pendingSave),
	}
}

// Delay returns the debounce interval
func (a *Autosaver) Delay() time.Duration {
	return a.delay
}

// Schedule queues shipment to be saved for id once edits settle
func (a *Autosaver) Schedule(id string, shipment entities.Shipment) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAutosaverClosed
	}

	if p, ok := a.pending[id]; ok && p.timer.Stop() {
		p.shipment = shipment
		p.timer.Reset(a.delay)
		return nil
	}

	a.gen++
	p := &pendingSave{shipment: shipment, gen: a.gen}
	a.wg.Add(1)
	gen := a.gen
	p.timer = time.AfterFunc(a.delay, func() { a.fire(id, gen) })
	a.pending[id] = p
	return nil
}

// Pending reports whether a save is queued for id
func (a *Autosaver) Pending(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[id]
	return ok
}

func (a *Autosaver) fire(id string, gen uint64) {
	defer a.wg.Done()

	a.mu.Lock()
	p, ok := a.pending[id]
	if !ok || p.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.pending, id)
	shipment := p.shipment
	a.mu.Unlock()

	if err := a.save(context.Background(), id, shipment); err != nil {
		a.logger.Warn("autosave failed", zap.String("transaction_id", id), zap.Error(err))
		return
	}
	a.logger.Debug("draft autosaved", zap.String("transaction_id", id))
}

// take removes a pending save if its timer has not fired yet
func (a *Autosaver) take(id string) (entities.Shipment, bool) {
	p, ok := a.pending[id]
	if !ok || !p.timer.Stop() {
		return entities.Shipment{}, false
	}
	delete(a.pending, id)
	a.wg.Done()
	return p.shipment, true
}

// Flush writes the pending save for id immediately. It is a no-op when
// nothing is pending or the save is already running.
func (a *Autosaver) Flush(ctx context.Context, id string) error {
	a.mu.Lock()
	shipment, ok := a.take(id)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return a.save(ctx, id, shipment)
}

// Cancel drops the pending save for id, used when the transaction is reset
func (a *Autosaver) Cancel(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.take(id); !ok {
		// a fired timer finds nothing to save
		delete(a.pending, id)
	}
}

// FlushAll writes every pending save
func (a *Autosaver) FlushAll(ctx context.Context) error {
	a.mu.Lock()
	due := make(map[string]entities.Shipment, len(a.pending))
	for id := range a.pending {
		if shipment, ok := a.take(id); ok {
			due[id] = shipment
		}
	}
	a.mu.Unlock()

	var errs []error
	for id, shipment := range due {
		if err := a.save(ctx, id, shipment); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops accepting saves, writes everything pending and waits for
// running saves to finish
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	err := a.FlushAll(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}
