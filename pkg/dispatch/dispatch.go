// Package dispatch fans a single command out to many cups.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/urmzd/glowcup/pkg/ble"
	"github.com/urmzd/glowcup/pkg/connection"
	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/protocol"
)

// Config tunes delivery.
type Config struct {
	WriteTimeout time.Duration
	RetryBackoff time.Duration
	// MaxRetries applies to timeouts only
	MaxRetries  int
	MaxInFlight int64
	// AutoExpand targets every connected cup when a dispatch without
	// explicit targets finds the selection empty.
	AutoExpand bool
}

// DefaultConfig returns the stock delivery settings.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 4 * time.Second,
		RetryBackoff: 300 * time.Millisecond,
		MaxRetries:   1,
		MaxInFlight:  8,
		AutoExpand:   true,
	}
}

// Sessions looks up the live session of a connected cup.
type Sessions interface {
	Session(id string) (*connection.Session, bool)
}

// Selection provides the ids targeted when a dispatch names none.
type Selection interface {
	IDs() []string
}

// Record describes one completed dispatch.
type Record struct {
	ID        uuid.UUID     `json:"id"`
	Command   cup.Command   `json:"command"`
	Targets   []string      `json:"targets"`
	Outcomes  cup.Outcomes  `json:"outcomes"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Dispatcher delivers commands concurrently across cups and in
// submission order per cup. It is the only writer of color, brightness
// and mode in the registry.
type Dispatcher struct {
	transport ble.Transport
	registry  *cup.Registry
	sessions  Sessions
	selection Selection
	cfg       Config
	sem       *semaphore.Weighted

	mu        sync.Mutex
	tails     map[string]chan struct{}
	listeners []func(Record)
}

// New creates a Dispatcher. Non-positive limits in cfg fall back to defaults.
func New(transport ble.Transport, registry *cup.Registry, sessions Sessions, selection Selection, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = def.MaxInFlight
	}
	return &Dispatcher{
		transport: transport,
		registry:  registry,
		sessions:  sessions,
		selection: selection,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(cfg.MaxInFlight),
		tails:     make(map[string]chan struct{}),
	}
}

// AddListener registers fn to receive every completed dispatch.
func (d *Dispatcher) AddListener(fn func(Record)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Dispatch sends cmd to targetIDs, or to the selected connected cups
// when targetIDs is empty. The outcome map has exactly one entry per
// resolved target. If any target did not succeed the error is a
// *cup.PartialFailureError carrying the same map.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd cup.Command, targetIDs []string) (cup.Outcomes, error) {
	payload, err := protocol.Encode(cmd)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	targets := d.Resolve(targetIDs)
	outcomes := make(cup.Outcomes, len(targets))

	// Queue every target before any delivery starts so per-cup order
	// follows call order.
	tickets := make([]*ticket, len(targets))
	d.mu.Lock()
	for i, id := range targets {
		tickets[i] = d.enqueueLocked(id)
	}
	d.mu.Unlock()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for i, id := range targets {
		g.Go(func() error {
			out := d.deliver(ctx, tickets[i], cmd, payload)
			mu.Lock()
			outcomes[id] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	rec := Record{
		ID:        uuid.New(),
		Command:   cmd,
		Targets:   targets,
		Outcomes:  outcomes,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	d.publish(rec)

	failed := outcomes.Failed()
	if len(failed) > 0 {
		log.Warn().
			Str("dispatch", rec.ID.String()).
			Str("command", cmd.String()).
			Strs("failed", failed).
			Int("targets", len(targets)).
			Msg("Command failed on some cups")
		return outcomes, &cup.PartialFailureError{Outcomes: outcomes}
	}

	log.Debug().
		Str("dispatch", rec.ID.String()).
		Str("command", cmd.String()).
		Int("targets", len(targets)).
		Dur("took", rec.Duration).
		Msg("Command delivered")
	return outcomes, nil
}

// Resolve returns the cups a dispatch to targetIDs would reach.
func (d *Dispatcher) Resolve(targetIDs []string) []string {
	if len(targetIDs) > 0 {
		seen := make(map[string]struct{}, len(targetIDs))
		targets := make([]string, 0, len(targetIDs))
		for _, id := range targetIDs {
			id = cup.NormalizeID(id)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			targets = append(targets, id)
		}
		return targets
	}

	var targets []string
	for _, id := range d.selection.IDs() {
		if d.registry.IsConnected(id) {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 && d.cfg.AutoExpand {
		targets = d.registry.ConnectedIDs()
		if len(targets) > 0 {
			log.Debug().Int("cups", len(targets)).Msg("Selection empty, targeting every connected cup")
		}
	}
	return targets
}

func (d *Dispatcher) publish(rec Record) {
	d.mu.Lock()
	listeners := make([]func(Record), len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(rec)
	}
}

// ticket holds a cup's place in its delivery queue.
type ticket struct {
	id   string
	prev <-chan struct{}
	done chan struct{}
}

func (d *Dispatcher) enqueueLocked(id string) *ticket {
	t := &ticket{id: id, prev: d.tails[id], done: make(chan struct{})}
	d.tails[id] = t.done
	return t
}

func (d *Dispatcher) release(t *ticket) {
	close(t.done)
	d.mu.Lock()
	if d.tails[t.id] == t.done {
		delete(d.tails, t.id)
	}
	d.mu.Unlock()
}

// deliver waits its turn on the cup, then writes with retry.
func (d *Dispatcher) deliver(ctx context.Context, t *ticket, cmd cup.Command, payload []byte) cup.Outcome {
	defer d.release(t)
	if t.prev != nil {
		<-t.prev
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return cup.OutcomeTimeout
	}
	defer d.sem.Release(1)

	if !d.registry.IsConnected(t.id) {
		return cup.OutcomeNotConnected
	}
	sess, ok := d.sessions.Session(t.id)
	if !ok || !sess.Begin() {
		return cup.OutcomeNotConnected
	}
	defer sess.End()

	for attempt := 0; ; attempt++ {
		err := d.write(ctx, sess, t.id, payload)
		out := classify(err, sess)

		if out == cup.OutcomeTimeout && attempt < d.cfg.MaxRetries && ctx.Err() == nil {
			log.Debug().Str("cup", t.id).Int("attempt", attempt+1).Msg("Write timed out, retrying")
			select {
			case <-time.After(d.cfg.RetryBackoff):
				continue
			case <-sess.Context().Done():
				return cup.OutcomeNotConnected
			case <-ctx.Done():
				return cup.OutcomeTimeout
			}
		}

		if out == cup.OutcomeSuccess {
			if err := d.registry.Apply(t.id, cmd); err != nil {
				log.Error().Err(err).Str("cup", t.id).Msg("Failed to record confirmed command")
			}
		} else {
			log.Debug().Err(err).Str("cup", t.id).Str("outcome", string(out)).Msg("Write failed")
		}
		return out
	}
}

// write bounds one characteristic write by the write timeout, the
// connection session and the caller.
func (d *Dispatcher) write(ctx context.Context, sess *connection.Session, id string, payload []byte) error {
	wctx, cancel := context.WithTimeout(sess.Context(), d.cfg.WriteTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return d.transport.WriteCharacteristic(wctx, id, payload)
}

func classify(err error, sess *connection.Session) cup.Outcome {
	switch {
	case err == nil:
		return cup.OutcomeSuccess
	case sess.Context().Err() != nil, errors.Is(err, cup.ErrNotConnected):
		return cup.OutcomeNotConnected
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, cup.ErrCommandTimeout):
		return cup.OutcomeTimeout
	default:
		return cup.OutcomeProtocolError
	}
}
