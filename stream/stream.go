// ABOUTME: The stream pump and consumer handle - drives a live response body
// ABOUTME: through framing and decoding into a bounded channel of events.
package stream

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Defaults applied when Options fields are zero.
const (
	// DefaultBuffer is the event channel capacity. A full channel suspends
	// the pump, so this bound is also the back-pressure window.
	DefaultBuffer = 100

	// DefaultMaxRecord caps a single record at 1 MiB.
	DefaultMaxRecord = 1 << 20

	// DefaultIdleTimeout bounds the wait for the next chunk.
	DefaultIdleTimeout = 90 * time.Second
)

// State represents the pump's control state. Transitions are one-directional:
// Active -> Draining -> Closed. There is no resurrection.
type State int32

const (
	// StateActive means the pump is accepting bytes and emitting events.
	StateActive State = iota
	// StateDraining means a terminal condition was observed; no further
	// bytes will be requested, already-received records are flushed.
	StateDraining
	// StateClosed means the event channel is closed; nothing follows.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures one stream.
type Options struct {
	// Buffer is the event channel capacity. Defaults to DefaultBuffer.
	Buffer int

	// MaxRecord is the largest allowed record in bytes. Defaults to
	// DefaultMaxRecord.
	MaxRecord int

	// IdleTimeout bounds the wait for the next chunk; on expiry the stream
	// fails with an ErrTimeout-kind error. Zero means DefaultIdleTimeout,
	// negative disables the watchdog.
	IdleTimeout time.Duration

	// Prefix is an envelope marker stripped from each line before it is
	// treated as a record ("data:" for SSE). Empty means none.
	Prefix string

	// Sentinel is a literal end-of-stream marker ("[DONE]"). Empty means
	// the stream ends only on a terminal payload or end of body.
	Sentinel string

	// Logger receives pump diagnostics. Nil discards them.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Buffer <= 0 {
		o.Buffer = DefaultBuffer
	}
	if o.MaxRecord <= 0 {
		o.MaxRecord = DefaultMaxRecord
	}
	if o.IdleTimeout == 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Stream is the consumer-facing sequence of events produced from one live
// response body. It is single-pass, forward-only, and not restartable.
type Stream[T any] struct {
	events chan Event[T]
	cancel context.CancelFunc
	state  int32 // atomic State
	done   chan struct{}
}

// Events returns the receiving half of the event channel. The channel is
// closed once the stream ends for any reason; ranging over it terminates.
func (s *Stream[T]) Events() <-chan Event[T] {
	return s.events
}

// State reports the pump's current control state.
func (s *Stream[T]) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// Close stops the producer and waits for it to release the underlying body.
// Undelivered events are discarded. Safe to call more than once and after
// the stream has ended on its own.
func (s *Stream[T]) Close() error {
	s.cancel()
	<-s.done
	return nil
}

// advance moves the state forward, never backward.
func (s *Stream[T]) advance(to State) {
	for {
		cur := atomic.LoadInt32(&s.state)
		if cur >= int32(to) {
			return
		}
		if atomic.CompareAndSwapInt32(&s.state, cur, int32(to)) {
			return
		}
	}
}

// Run attaches a pump to body and returns the consumer handle. The pump owns
// body and closes it when the stream ends. Cancelling ctx or calling Close
// stops the pump promptly, including while it is blocked in a read.
func Run[T any](ctx context.Context, body io.ReadCloser, codec Codec[T], opts Options) *Stream[T] {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	s := &Stream[T]{
		events: make(chan Event[T], opts.Buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p := &pump[T]{
		stream: s,
		body:   body,
		codec:  codec,
		dec:    newFrameDecoder(opts.Prefix, opts.Sentinel, opts.MaxRecord),
		idle:   opts.IdleTimeout,
		log:    opts.Logger,
	}
	go p.run(ctx)
	return s
}

// pump owns the frame buffer and the sending half of the event channel. It
// runs on its own goroutine; the bounded channel is the only shared resource.
type pump[T any] struct {
	stream   *Stream[T]
	body     io.ReadCloser
	codec    Codec[T]
	dec      *frameDecoder
	idle     time.Duration
	log      *zap.Logger
	timedOut atomic.Bool
	records  int
}

func (p *pump[T]) run(ctx context.Context) {
	defer func() {
		p.body.Close()
		p.stream.advance(StateClosed)
		close(p.stream.events)
		close(p.stream.done)
		p.log.Debug("stream closed", zap.Int("records", p.records))
	}()

	// Unblock a pending read when the consumer cancels.
	stop := context.AfterFunc(ctx, func() {
		p.body.Close()
	})
	defer stop()

	var watchdog *time.Timer
	if p.idle > 0 {
		watchdog = time.AfterFunc(p.idle, func() {
			p.timedOut.Store(true)
			p.body.Close()
		})
		defer watchdog.Stop()
	}

	buf := make([]byte, 4096)
	for {
		n, err := p.body.Read(buf)
		if n > 0 {
			if watchdog != nil {
				watchdog.Reset(p.idle)
			}
			recs, ferr := p.dec.feed(buf[:n])
			if !p.deliver(ctx, recs) {
				return
			}
			if ferr != nil {
				p.fail(ctx, ferr)
				return
			}
			if p.stream.State() != StateActive {
				// Terminal record or sentinel seen. Everything
				// fully received has been delivered; stop here.
				return
			}
		}
		if err != nil {
			p.finish(ctx, err)
			return
		}
	}
}

// deliver publishes the records completed by one chunk, in arrival order.
// A terminal payload or the sentinel moves the stream to Draining, but
// records already framed behind it are still delivered: pending complete
// records are never silently truncated. Returns false once the consumer
// is gone.
func (p *pump[T]) deliver(ctx context.Context, recs []record) bool {
	for _, rec := range recs {
		if rec.sentinel {
			p.stream.advance(StateDraining)
			p.log.Debug("sentinel received")
			continue
		}
		ev := p.parse(rec)
		if !p.publish(ctx, ev) {
			return false
		}
		if ev.Final {
			p.stream.advance(StateDraining)
		}
	}
	return true
}

// parse decodes one record, mapping failure to a malformed event rather than
// terminating the stream.
func (p *pump[T]) parse(rec record) Event[T] {
	v, err := p.codec.Decode([]byte(rec.text))
	if err != nil {
		p.log.Debug("malformed record", zap.String("record", rec.text), zap.Error(err))
		return Event[T]{
			Type: EventMalformed,
			Raw:  rec.text,
			Err:  &Error{Kind: ErrDecode, Op: "decode", Raw: rec.text, Err: err},
		}
	}
	p.records++
	reason, done := p.codec.Terminal(v)
	return Event[T]{Type: EventPartial, Payload: v, Final: done, Reason: reason}
}

// finish handles the end of the byte source. A clean end of body flushes the
// retained tail and closes normally; cancellation closes silently; timeouts
// and anything else surface as the final failure event.
func (p *pump[T]) finish(ctx context.Context, err error) {
	if errors.Is(err, io.EOF) {
		if rec, ok := p.dec.flush(); ok && !rec.sentinel {
			if !p.publish(ctx, p.parse(rec)) {
				return
			}
		}
		p.stream.advance(StateDraining)
		return
	}
	if p.timedOut.Load() {
		p.fail(ctx, &Error{Kind: ErrTimeout, Op: "read", Err: err})
		return
	}
	if ctx.Err() != nil {
		// Consumer cancelled; nobody is listening for a failure event.
		p.stream.advance(StateDraining)
		return
	}
	p.fail(ctx, &Error{Kind: ErrTransport, Op: "read", Err: err})
}

// fail publishes the fatal failure event and moves the stream to Draining.
func (p *pump[T]) fail(ctx context.Context, err error) {
	p.stream.advance(StateDraining)
	p.log.Warn("stream failed", zap.Error(err))
	p.publish(ctx, Event[T]{Type: EventFailure, Err: err})
}

// publish delivers one event, honoring back-pressure from the bounded
// channel. Returns false when the consumer has cancelled.
func (p *pump[T]) publish(ctx context.Context, ev Event[T]) bool {
	select {
	case p.stream.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
