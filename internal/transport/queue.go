package transport

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

const (
	// DefaultReplyTimeout applies when NewQueue is given a zero timeout.
	DefaultReplyTimeout = 5 * time.Second

	// replyBuffer bounds replies waiting for the worker.
	replyBuffer = 64
)

// Link writes encoded messages to the modem gateway.
type Link interface {
	Write(ctx context.Context, msg insteon.Message) error
}

// Queue is the half-duplex gate between the insteon packages and the modem.
//
// Messages are written in submission order with at most one in flight.
// Replies passed to Deliver go to the in-flight message's handler until it
// returns insteon.Finished or no reply arrives within the reply timeout, in
// which case the handler receives a reply with Err set to insteon.ErrTimeout.
// Handlers run on the worker goroutine and may call Send; the new message
// queues behind everything already submitted.
//
// Each exchange gets a sequence number, available to the link through
// SeqFrom. A reply carrying a different non-zero Seq belongs to an earlier
// exchange that timed out and is dropped. Replies with Seq zero cannot be
// told apart: a late one from a gateway that does not echo sequence numbers
// reaches whichever message is in flight when it arrives.
//
// Thread Safety: Send and Deliver are safe for concurrent use.
type Queue struct {
	link    Link
	timeout time.Duration
	logger  insteon.Logger

	mu      sync.Mutex
	pending []request
	closed  bool

	wake     chan struct{}
	replies  chan insteon.Reply
	inFlight atomic.Bool
	current  atomic.Uint64 // sequence number of the in-flight exchange
	lastSeq  uint64        // worker goroutine only

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type request struct {
	msg     insteon.Message
	handler insteon.Handler
}

// Queue implements insteon.Protocol.
var _ insteon.Protocol = (*Queue)(nil)

// NewQueue creates a stopped queue writing through link.
//
// Parameters:
//   - link: Gateway link used to write each message
//   - timeout: Maximum wait for each reply (zero means DefaultReplyTimeout)
//   - logger: Optional logger (nil discards)
func NewQueue(link Link, timeout time.Duration, logger insteon.Logger) *Queue {
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	if logger == nil {
		logger = insteon.NoopLogger{}
	}
	return &Queue{
		link:    link,
		timeout: timeout,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		replies: make(chan insteon.Reply, replyBuffer),
	}
}

// Send queues msg; handler receives its replies. Send never blocks.
// After Stop the handler is called immediately with ErrClosed.
func (q *Queue) Send(msg insteon.Message, handler insteon.Handler) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.dispatch(request{msg: msg, handler: handler}, insteon.Reply{Err: ErrClosed})
		return
	}
	q.pending = append(q.pending, request{msg: msg, handler: handler})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Deliver hands a reply from the gateway to the in-flight handler.
// Replies arriving while nothing is in flight, or while the reply buffer is
// full, are logged and dropped.
func (q *Queue) Deliver(r insteon.Reply) {
	if !q.inFlight.Load() {
		q.logger.Debug("dropping unsolicited reply", "ack", r.Ack)
		return
	}
	if q.stale(r, q.current.Load()) {
		return
	}
	select {
	case q.replies <- r:
	default:
		q.logger.Warn("reply buffer full, dropping reply", "ack", r.Ack)
	}
}

// Len returns the number of messages waiting to be written.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Start launches the worker. It stops when ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.run(ctx)
}

// Stop cancels the worker and waits for it to exit. The in-flight message
// and every pending message are failed with ErrClosed.
// Safe to call multiple times.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		if q.cancel != nil {
			q.cancel()
		}
		q.wg.Wait()
		q.close()
	})
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()
	defer q.close()

	for {
		req, ok := q.next(ctx)
		if !ok {
			return
		}
		q.exchange(ctx, req)
	}
}

// next blocks until a message is pending or ctx is done.
func (q *Queue) next(ctx context.Context) (request, bool) {
	for {
		if ctx.Err() != nil {
			return request{}, false
		}

		q.mu.Lock()
		if len(q.pending) > 0 {
			req := q.pending[0]
			q.pending[0] = request{}
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return req, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return request{}, false
		case <-q.wake:
		}
	}
}

// exchange writes one message and feeds its replies to the handler.
func (q *Queue) exchange(ctx context.Context, req request) {
	if _, ok := req.msg.(insteon.Barrier); ok {
		q.dispatch(req, insteon.Reply{Ack: true})
		return
	}

	q.lastSeq++
	seq := q.lastSeq

	q.discardStale()
	q.current.Store(seq)
	q.inFlight.Store(true)
	defer q.inFlight.Store(false)

	q.logger.Debug("writing message", "type", req.msg.Type(), "seq", seq)

	if err := q.link.Write(withSeq(ctx, seq), req.msg); err != nil {
		q.logger.Error("gateway write failed", "type", req.msg.Type(), "error", err)
		q.dispatch(req, insteon.Reply{Err: fmt.Errorf("%w: %w", ErrWriteFailed, err)})
		return
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			q.dispatch(req, insteon.Reply{Err: ErrClosed})
			return

		case r := <-q.replies:
			if q.stale(r, seq) {
				continue
			}
			if q.dispatch(req, r) == insteon.Finished {
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(q.timeout)

		case <-timer.C:
			q.logger.Warn("reply timed out", "type", req.msg.Type(), "timeout", q.timeout)
			q.dispatch(req, insteon.Reply{Err: insteon.ErrTimeout})
			return
		}
	}
}

// dispatch calls the handler, treating a panic as Finished.
func (q *Queue) dispatch(req request, r insteon.Reply) (status insteon.Status) {
	if req.handler == nil {
		return insteon.Finished
	}

	defer func() {
		if p := recover(); p != nil {
			q.logger.Error("reply handler panicked",
				"type", req.msg.Type(),
				"panic", p,
				"stack", string(debug.Stack()),
			)
			status = insteon.Finished
		}
	}()

	status = req.handler.HandleReply(r)
	if r.Err != nil {
		// No further replies follow an error.
		return insteon.Finished
	}
	return status
}

// stale reports, and logs, a reply tagged for another exchange than seq.
func (q *Queue) stale(r insteon.Reply, seq uint64) bool {
	if r.Seq == 0 || r.Seq == seq {
		return false
	}
	q.logger.Debug("dropping late reply", "seq", r.Seq, "in_flight", seq)
	return true
}

// discardStale drops replies left over from a previous exchange.
func (q *Queue) discardStale() {
	for {
		select {
		case r := <-q.replies:
			q.logger.Debug("discarding stale reply", "ack", r.Ack)
		default:
			return
		}
	}
}

// close marks the queue closed and fails everything still pending.
func (q *Queue) close() {
	q.mu.Lock()
	q.closed = true
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, req := range pending {
		q.dispatch(req, insteon.Reply{Err: ErrClosed})
	}
}
