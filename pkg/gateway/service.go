package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"chatdispatch/pkg/bus"
	"chatdispatch/pkg/channel"
	"chatdispatch/pkg/chat"
	"chatdispatch/pkg/config"

	"golang.org/x/sync/errgroup"
)

const (
	defaultHealthHost = "0.0.0.0"
	defaultHealthPort = 18790
)

// Dispatcher is the part of chat.System the gateway depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, msgType string, content any, sender string) chat.Result
	MessageCount() int
}

// Service connects channel adapters to the dispatcher and serves health,
// readiness and dispatch statistics over HTTP.
type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	dispatcher Dispatcher
	channels   []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	channelStates map[string]channelState
	kindCounts    map[string]int64
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Channels      map[string]channelState `json:"channels"`
}

type statsResponse struct {
	MessagesHandled int              `json:"messages_handled"`
	Dispatches      map[string]int64 `json:"dispatches"`
}

func NewService(cfg *config.Config, dispatcher Dispatcher, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		dispatcher:    dispatcher,
		channels:      adapters,
		channelStates: channelStates,
		kindCounts:    make(map[string]int64),
	}, nil
}

// Run serves until ctx is canceled or an adapter or the status server fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)

	server := s.newStatusServer()
	group.Go(func() error {
		s.log.Info("Gateway status server started", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("start status server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	})

	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		group.Go(func() error {
			err := adapter.Run(groupCtx, s.handleInbound)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
			return nil
		})
	}

	return group.Wait()
}

// handleInbound dispatches one channel message. Failed dispatches are
// returned as errors with the rendered failure in OutboundMessage.Error.
func (s *Service) handleInbound(ctx context.Context, inbound bus.InboundMessage) (bus.OutboundMessage, error) {
	result := s.dispatcher.Dispatch(ctx, inbound.Type, inbound.Content, senderName(inbound))
	s.countKind(result.Kind)

	outbound := bus.OutboundMessage{
		Channel: inbound.Channel,
		ChatID:  inbound.ChatID,
		Metadata: map[string]string{
			"dispatch_id": result.DispatchID,
			"kind":        result.Kind.String(),
		},
	}

	if result.Kind.Failed() {
		outbound.Error = result.String()
		return outbound, result.Err
	}

	outbound.Content = result.String()
	return outbound, nil
}

// senderName prefers a channel username over the numeric sender id.
func senderName(inbound bus.InboundMessage) string {
	if name := strings.TrimSpace(inbound.Metadata["username"]); name != "" {
		return name
	}

	return inbound.SenderID
}

func (s *Service) newStatusServer() *http.Server {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHealthHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultHealthPort
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/stats", s.handleStats)

	return &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.currentStatus("ok"))
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondJSON(w, statusCode, s.currentStatus(status))
}

func (s *Service) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	counts := make(map[string]int64, len(s.kindCounts))
	for kind, count := range s.kindCounts {
		counts[kind] = count
	}
	s.mu.RUnlock()

	s.respondJSON(w, http.StatusOK, statsResponse{
		MessagesHandled: s.dispatcher.MessageCount(),
		Dispatches:      counts,
	})
}

func (s *Service) respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Channels:      channels,
	}
}

// isReady reports whether at least one channel is running.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}

	return false
}

func (s *Service) countKind(kind chat.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kindCounts[kind.String()]++
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
