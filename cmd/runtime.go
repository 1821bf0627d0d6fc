package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"chatdispatch/pkg/bus"
	"chatdispatch/pkg/chat"
	"chatdispatch/pkg/config"
	"chatdispatch/pkg/handler/builtin"
	"chatdispatch/pkg/history"
	"chatdispatch/pkg/middleware"
)

// dispatchRuntime is the wired dispatcher shared by every command.
type dispatchRuntime struct {
	system *chat.System
	events *bus.EventBus
	store  *history.Store
}

// newDispatchRuntime builds the system with the stock handlers, the logging
// middleware, the sensitive-word filter when enabled and the history store
// when enabled.
func newDispatchRuntime(cfg *config.Config, log *slog.Logger) (*dispatchRuntime, error) {
	rt := &dispatchRuntime{events: bus.NewEventBus()}

	opts := []chat.Option{
		chat.WithLogger(log),
		chat.WithObserver(rt.events),
	}

	if cfg.EnableMessageHistory {
		store, err := history.Open(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("open message history: %w", err)
		}
		rt.store = store
		opts = append(opts, chat.WithRecorder(store))
	}

	system, err := chat.NewSystem(*cfg, opts...)
	if err != nil {
		return nil, err
	}
	rt.system = system

	if err := system.RegisterHandlers(builtin.Handlers()); err != nil {
		return nil, err
	}

	if err := system.AddMiddleware(middleware.NewLogging(log)); err != nil {
		return nil, err
	}
	if cfg.EnableSensitiveFilter {
		if err := system.AddMiddleware(middleware.NewSensitiveWord(cfg.SensitiveWords)); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

// watchEvents logs dispatch events at debug level until ctx is done.
func (rt *dispatchRuntime) watchEvents(ctx context.Context, log *slog.Logger) func() {
	events, unsubscribe := rt.events.SubscribeEvents(ctx, 0)

	go func() {
		for event := range events {
			log.Debug("Dispatch event",
				"event", event.Type,
				"dispatch_id", event.DispatchID,
				"message_type", event.MessageType,
				"kind", event.Kind,
				"error", event.Error,
			)
		}
	}()

	return unsubscribe
}

func (rt *dispatchRuntime) Close() {
	rt.events.Close()
}
