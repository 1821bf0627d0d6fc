package chat

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strconv"
	"sync"
	"time"

	"chatdispatch/pkg/bus"
	"chatdispatch/pkg/config"
	"chatdispatch/pkg/handler"
	"chatdispatch/pkg/message"
	"chatdispatch/pkg/middleware"

	"github.com/google/uuid"
)

// Observer receives dispatch lifecycle events.
type Observer interface {
	DispatchEvent(bus.Event)
}

// Recorder persists successfully handled messages.
type Recorder interface {
	Record(ctx context.Context, entry LogEntry) error
}

// LogEntry is one successfully handled message.
type LogEntry struct {
	ID      string
	Type    string
	Context *message.Context
}

type Option func(*System)

// WithLogger injects the logger used for dispatch diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(s *System) {
		if log != nil {
			s.log = log
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(s *System) { s.observer = observer }
}

func WithRecorder(recorder Recorder) Option {
	return func(s *System) { s.recorder = recorder }
}

// WithClock overrides the timestamp source for message contexts.
func WithClock(now func() time.Time) Option {
	return func(s *System) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDispatchTimeout bounds middleware and handler execution per dispatch.
// Zero disables the bound.
func WithDispatchTimeout(timeout time.Duration) Option {
	return func(s *System) {
		if timeout >= 0 {
			s.timeout = timeout
		}
	}
}

// System routes typed messages through the middleware chain to the
// highest-priority handler registered for their type.
type System struct {
	cfg      config.Config
	registry *handler.Registry
	chain    *middleware.Chain
	log      *slog.Logger
	observer Observer
	recorder Recorder
	now      func() time.Time
	timeout  time.Duration

	mu         sync.Mutex
	messageLog []LogEntry
}

// NewSystem validates cfg and builds an empty system. cfg is copied; later
// changes by the caller have no effect.
func NewSystem(cfg config.Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SupportedMessageTypes = slices.Clone(cfg.SupportedMessageTypes)
	cfg.SensitiveWords = slices.Clone(cfg.SensitiveWords)

	s := &System{
		cfg:      cfg,
		registry: handler.NewRegistry(),
		chain:    middleware.NewChain(),
		log:      slog.Default(),
		now:      time.Now,
		timeout:  time.Duration(cfg.DispatchTimeoutSeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "chat.system")

	return s, nil
}

// Config returns the configuration snapshot the system was built with.
func (s *System) Config() config.Config {
	return s.cfg
}

// RegisterHandlers registers every definition from supplier. It is meant for
// the setup phase and is the only operation that returns a structured error.
func (s *System) RegisterHandlers(supplier handler.Supplier) error {
	count, err := s.registry.RegisterAll(supplier)
	if err != nil {
		s.log.Error("Failed to register handlers", "registered", count, "error", err)
		return err
	}

	s.log.Info("Registered handlers", "count", count, "types", s.registry.Types())
	return nil
}

// AddMiddleware appends mw to the chain.
func (s *System) AddMiddleware(mw middleware.Middleware) error {
	if err := s.chain.Add(mw); err != nil {
		s.log.Error("Failed to add middleware", "error", err)
		return err
	}

	s.log.Info("Added middleware", "middleware", middleware.NameOf(mw))
	return nil
}

// HandlerTypes lists the message types with at least one handler.
func (s *System) HandlerTypes() []string {
	return s.registry.Types()
}

// Handlers lists every handler registered for msgType in dispatch order.
// Only the first one is ever invoked.
func (s *System) Handlers(msgType string) []handler.Definition {
	return s.registry.Candidates(msgType)
}

// Middlewares lists the chain in insertion order.
func (s *System) Middlewares() []string {
	return s.chain.Names()
}

// Process dispatches one message and renders the outcome. It never fails.
func (s *System) Process(ctx context.Context, msgType string, content any, sender string) string {
	return s.Dispatch(ctx, msgType, content, sender).String()
}

// Dispatch validates, runs pre-hooks, invokes the handler and runs
// post-hooks. Every fault is reported in the returned Result.
func (s *System) Dispatch(ctx context.Context, msgType string, content any, sender string) (res Result) {
	if s == nil {
		return failure(KindSystemFault, "chat system is not initialized", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id := uuid.NewString()
	log := s.log.With("dispatch_id", id, "type", msgType, "sender", sender)

	defer func() {
		if r := recover(); r != nil {
			log.Error("System error", "panic", r, "stack", string(debug.Stack()))
			res = failure(KindSystemFault, fmt.Sprint(r), nil)
		}
		res.DispatchID = id
		s.observe(id, msgType, sender, res)
	}()

	s.emit(bus.Event{Type: bus.EventDispatchReceived, DispatchID: id, MessageType: msgType, Sender: sender})

	return s.dispatch(ctx, id, log, msgType, content, sender)
}

func (s *System) dispatch(ctx context.Context, id string, log *slog.Logger, msgType string, content any, sender string) Result {
	if !s.cfg.SupportsType(msgType) {
		log.Error("Unsupported message type")
		return failure(KindUnsupportedType, msgType, nil)
	}

	if length, ok := message.TextLength(content); ok && length > s.cfg.MaxMessageLength {
		log.Info("Message exceeds length limit", "length", length, "limit", s.cfg.MaxMessageLength)
		return Result{Kind: KindLengthExceeded, Limit: s.cfg.MaxMessageLength}
	}

	msg := message.NewContext(content, s.now(), sender)
	log.Info("Processing message")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	outcome, err := s.chain.RunPre(ctx, msg)
	if err != nil {
		log.Error("Middleware pre-processing failed", "error", err)
		return failure(KindMiddlewareFailure, "", err)
	}
	if outcome.Intercepted {
		log.Info("Message intercepted by middleware", "middleware", outcome.Name, "index", outcome.Index)
		return Result{Kind: KindIntercepted, Middleware: outcome.Name, MiddlewareIndex: outcome.Index}
	}

	def, ok := s.registry.Lookup(msgType)
	if !ok {
		log.Warn("No handler registered for message type")
		return failure(KindUnsupportedType, msgType, nil)
	}

	text, err := invoke(ctx, def, msg)
	if err != nil {
		log.Error("Message handler failed", "handler", def.Name, "error", err)
		return failure(KindHandlerFailure, "", err)
	}

	s.appendLog(ctx, log, LogEntry{ID: id, Type: msgType, Context: msg})

	text, err = s.chain.RunPost(ctx, text, msg)
	if err != nil {
		log.Error("Middleware post-processing failed", "error", err, "partial_result", text)
		return failure(KindMiddlewareFailure, "", err)
	}

	log.Info("Message processed")
	return Result{Kind: KindOK, Text: text}
}

// invoke runs the handler on its own goroutine so a deadline on ctx bounds
// the wait even when the handler ignores ctx.
func invoke(ctx context.Context, def handler.Definition, msg *message.Context) (string, error) {
	type outcome struct {
		text string
		err  error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()

		text, err := def.Invoke(ctx, msg)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", fmt.Errorf("handler %q did not finish: %w", def.Name, ctx.Err())
	}
}

// appendLog records entry in memory and, when configured, in the recorder.
// A recorder failure is logged but does not fail the dispatch.
func (s *System) appendLog(ctx context.Context, log *slog.Logger, entry LogEntry) {
	s.mu.Lock()
	s.messageLog = append(s.messageLog, entry)
	s.mu.Unlock()

	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		log.Warn("Failed to record message history", "error", err)
	}
}

// MessageLog returns a copy of every successfully handled message.
func (s *System) MessageLog() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messageLog) == 0 {
		return nil
	}

	return slices.Clone(s.messageLog)
}

func (s *System) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messageLog)
}

func (s *System) observe(id string, msgType string, sender string, res Result) {
	event := bus.Event{
		DispatchID:  id,
		MessageType: msgType,
		Sender:      sender,
		Kind:        res.Kind.String(),
	}

	switch res.Kind {
	case KindOK:
		event.Type = bus.EventDispatchCompleted
	case KindIntercepted:
		event.Type = bus.EventDispatchIntercepted
		event.Payload = map[string]string{
			"middleware": res.Middleware,
			"index":      strconv.Itoa(res.MiddlewareIndex),
		}
	case KindLengthExceeded, KindUnsupportedType:
		event.Type = bus.EventDispatchRejected
	default:
		event.Type = bus.EventDispatchFailed
	}
	if res.Err != nil {
		event.Error = res.Err.Error()
	}

	s.emit(event)
}

func (s *System) emit(event bus.Event) {
	if s.observer == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("Dispatch observer panicked", "event", event.Type, "panic", r)
		}
	}()

	event.At = s.now().UTC()
	s.observer.DispatchEvent(event)
}
