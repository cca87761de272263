// Package sequencer admits chat requests one at a time.
//
// At most one request is serviced at any instant. Requests arriving while one
// is in flight wait in an arrival-ordered queue and are drained by the same
// goroutine once the current request has been delivered or has failed.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"nyan-bot/internal/pkg/logger"
	"nyan-bot/pkg/events"

	"github.com/google/uuid"
)

var (
	ErrQueueFull = errors.New("sequencer: queue is full")
	ErrClosed    = errors.New("sequencer: shut down")
)

// Event types emitted to the EventSink.
const (
	EventRequestAdmitted  = "REQUEST_ADMITTED"
	EventRequestQueued    = "REQUEST_QUEUED"
	EventRequestRejected  = "REQUEST_REJECTED"
	EventRequestCompleted = "REQUEST_COMPLETED"
	EventRequestFailed    = "REQUEST_FAILED"
	EventStyleModeChanged = "STYLE_MODE_CHANGED"
)

// ReplyTarget is where the answers to one request go.
type ReplyTarget interface {
	// Acknowledge signals that work has started. Sent before the completion call.
	Acknowledge(ctx context.Context) error
	// Deliver sends the final answer or the fallback message.
	Deliver(ctx context.Context, text string) error
	// NotifyBusy tells a queued caller to wait. Sent once, never retried.
	NotifyBusy(ctx context.Context, text string) error
}

// Completer turns a query into generated text.
type Completer interface {
	Complete(ctx context.Context, query string) (string, error)
}

type EventSink = events.Publisher

type Admission int

const (
	AdmissionServing Admission = iota
	AdmissionQueued
)

func (a Admission) String() string {
	switch a {
	case AdmissionServing:
		return "serving"
	case AdmissionQueued:
		return "queued"
	default:
		return fmt.Sprintf("admission(%d)", int(a))
	}
}

type PendingRequest struct {
	ID         uuid.UUID
	Target     ReplyTarget
	Query      string
	Requester  string
	AdmittedAt time.Time

	// closed once the busy notice of a queued request has been attempted
	notified chan struct{}
}

func NewPendingRequest(target ReplyTarget, requester, query string) *PendingRequest {
	return &PendingRequest{
		ID:        uuid.New(),
		Target:    target,
		Query:     query,
		Requester: requester,
	}
}

type Snapshot struct {
	Busy       bool
	QueueDepth int
	StyleMode  bool
	Served     int64
	Failed     int64
}

type Sequencer struct {
	completer Completer
	transform func(string) string
	messages  MessageTable
	logger    logger.ILogger
	sink      EventSink
	capacity  int
	baseCtx   context.Context

	mu     sync.Mutex
	busy   bool
	queue  []*PendingRequest
	closed bool

	styleMode atomic.Bool
	served    atomic.Int64
	failed    atomic.Int64

	wg sync.WaitGroup
}

type Option func(*Sequencer)

// WithTransform sets the post-processing applied to answers while style mode is on.
func WithTransform(fn func(string) string) Option {
	return func(s *Sequencer) { s.transform = fn }
}

func WithMessages(table MessageTable) Option {
	return func(s *Sequencer) { s.messages = table }
}

func WithLogger(l logger.ILogger) Option {
	return func(s *Sequencer) { s.logger = l }
}

func WithEventSink(sink EventSink) Option {
	return func(s *Sequencer) { s.sink = sink }
}

// WithQueueCapacity bounds the waiting queue. Zero means unbounded.
func WithQueueCapacity(n int) Option {
	return func(s *Sequencer) { s.capacity = n }
}

func WithStyleMode(on bool) Option {
	return func(s *Sequencer) { s.styleMode.Store(on) }
}

// WithBaseContext sets the context servicing runs under. Callers' contexts are
// only used for the busy notice since servicing outlives the submitting call.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Sequencer) { s.baseCtx = ctx }
}

func New(completer Completer, opts ...Option) *Sequencer {
	s := &Sequencer{
		completer: completer,
		transform: func(text string) string { return text },
		messages:  DefaultMessages(),
		logger:    logger.NewNopLogger(),
		baseCtx:   context.Background(),
	}
	s.styleMode.Store(true)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit services req right away when idle, otherwise queues it and sends
// the busy notice. It never waits for the completion call.
func (s *Sequencer) Submit(ctx context.Context, req *PendingRequest) (Admission, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.AdmittedAt = time.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}

	if !s.busy {
		s.busy = true
		s.wg.Add(1)
		s.mu.Unlock()

		s.emit(ctx, EventRequestAdmitted, req, nil)
		go s.drain(req)
		return AdmissionServing, nil
	}

	if s.capacity > 0 && len(s.queue) >= s.capacity {
		depth := len(s.queue)
		s.mu.Unlock()

		s.logger.Warn(logger.ModuleSequencer, "Queue full, rejecting request", map[string]interface{}{
			"request_id":  req.ID.String(),
			"requester":   req.Requester,
			"queue_depth": depth,
		})
		s.notifyBusy(ctx, req, s.messages.For(s.StyleMode()).QueueFull)
		s.emit(ctx, EventRequestRejected, req, map[string]interface{}{"queue_depth": depth})
		return 0, ErrQueueFull
	}

	req.notified = make(chan struct{})
	s.queue = append(s.queue, req)
	depth := len(s.queue)
	s.mu.Unlock()

	s.logger.Info(logger.ModuleSequencer, "Request queued", map[string]interface{}{
		"request_id":  req.ID.String(),
		"requester":   req.Requester,
		"queue_depth": depth,
	})
	s.notifyBusy(ctx, req, s.messages.For(s.StyleMode()).Busy)
	close(req.notified)
	s.emit(ctx, EventRequestQueued, req, map[string]interface{}{"queue_depth": depth})
	return AdmissionQueued, nil
}

// SetStyleMode takes effect for the next answer that reaches the transform
// step, including answers already in flight.
func (s *Sequencer) SetStyleMode(on bool) string {
	s.styleMode.Store(on)

	s.logger.Info(logger.ModuleSequencer, "Style mode changed", map[string]interface{}{"style_mode": on})
	if s.sink != nil {
		evt := events.New(EventStyleModeChanged, map[string]interface{}{"style_mode": on})
		if err := s.sink.Publish(s.baseCtx, evt); err != nil {
			s.logger.Warn(logger.ModuleSequencer, "Failed to publish event", map[string]interface{}{"type": evt.Type, "error": err.Error()})
		}
	}
	return s.messages.For(on).ModeChanged
}

func (s *Sequencer) StyleMode() bool {
	return s.styleMode.Load()
}

func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	busy, depth := s.busy, len(s.queue)
	s.mu.Unlock()

	return Snapshot{
		Busy:       busy,
		QueueDepth: depth,
		StyleMode:  s.StyleMode(),
		Served:     s.served.Load(),
		Failed:     s.failed.Load(),
	}
}

// Shutdown stops admission and waits until every admitted request has been serviced.
func (s *Sequencer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sequencer) drain(req *PendingRequest) {
	defer s.wg.Done()

	for req != nil {
		s.serve(req)
		req = s.next()
	}
}

// next releases the slot and, if anything is waiting, takes it again for the
// queue head. Both happen under one lock so no other request can slip in.
func (s *Sequencer) next() *PendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.busy = false
	if len(s.queue) == 0 {
		return nil
	}

	head := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.busy = true
	return head
}

func (s *Sequencer) serve(req *PendingRequest) {
	ctx := s.baseCtx
	details := map[string]interface{}{
		"request_id": req.ID.String(),
		"requester":  req.Requester,
	}

	defer func() {
		if r := recover(); r != nil {
			details["panic"] = fmt.Sprint(r)
			s.logger.Error(logger.ModuleSequencer, "Servicing panicked", details)
		}
	}()

	if req.notified != nil {
		// the busy notice must reach the target before its first acknowledgement
		<-req.notified
	}

	s.acknowledge(ctx, req, details)

	start := time.Now()
	text, err := s.complete(ctx, req.Query)
	latency := time.Since(start)

	// Mode is read here, after the completion returns.
	styleMode := s.StyleMode()
	reply := text
	if err == nil && styleMode {
		reply, err = s.stylize(text)
	}

	eventType := EventRequestCompleted
	data := map[string]interface{}{
		"latency_ms": latency.Milliseconds(),
		"style_mode": styleMode,
	}
	if err != nil {
		s.failed.Add(1)
		reply = s.messages.For(styleMode).Failure
		eventType = EventRequestFailed
		data["error"] = err.Error()
		s.logger.Error(logger.ModuleSequencer, "Request failed", withError(details, err))
	} else {
		s.served.Add(1)
	}

	// the outcome event follows delivery
	defer s.emit(ctx, eventType, req, data)

	if deliverErr := req.Target.Deliver(ctx, reply); deliverErr != nil {
		s.logger.Warn(logger.ModuleSequencer, "Failed to deliver answer", withError(details, deliverErr))
		return
	}

	s.logger.Info(logger.ModuleSequencer, "Request serviced", map[string]interface{}{
		"request_id": req.ID.String(),
		"requester":  req.Requester,
		"latency_ms": latency.Milliseconds(),
		"failed":     err != nil,
	})
}

func (s *Sequencer) acknowledge(ctx context.Context, req *PendingRequest, details map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(logger.ModuleSequencer, "Acknowledgement panicked", withError(details, fmt.Errorf("%v", r)))
		}
	}()

	if err := req.Target.Acknowledge(ctx); err != nil {
		s.logger.Warn(logger.ModuleSequencer, "Failed to acknowledge request", withError(details, err))
	}
}

func (s *Sequencer) complete(ctx context.Context, query string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completer panicked: %v", r)
		}
	}()

	return s.completer.Complete(ctx, query)
}

func (s *Sequencer) stylize(text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()

	return s.transform(text), nil
}

func (s *Sequencer) notifyBusy(ctx context.Context, req *PendingRequest, text string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(logger.ModuleSequencer, "Busy notice panicked", map[string]interface{}{
				"request_id": req.ID.String(),
				"panic":      fmt.Sprint(r),
			})
		}
	}()

	if err := req.Target.NotifyBusy(ctx, text); err != nil {
		s.logger.Warn(logger.ModuleSequencer, "Failed to send busy notice", map[string]interface{}{
			"request_id": req.ID.String(),
			"error":      err.Error(),
		})
	}
}

func (s *Sequencer) emit(ctx context.Context, eventType string, req *PendingRequest, extra map[string]interface{}) {
	if s.sink == nil {
		return
	}

	data := map[string]interface{}{
		"request_id":   req.ID.String(),
		"requester":    req.Requester,
		"query_length": len([]rune(req.Query)),
	}
	for k, v := range extra {
		data[k] = v
	}

	if err := s.sink.Publish(ctx, events.New(eventType, data)); err != nil {
		s.logger.Warn(logger.ModuleSequencer, "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func withError(details map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
