package gateway

import (
	"testing"

	"chatdispatch/pkg/bus"
	"chatdispatch/pkg/channel"
	"chatdispatch/pkg/config"
)

func TestIsReady(t *testing.T) {
	t.Parallel()

	svc := &Service{channelStates: map[string]channelState{"telegram": {}}}
	if svc.isReady() {
		t.Fatal("expected not ready without a running channel")
	}

	svc.channelStates["telegram"] = channelState{Running: true}
	if !svc.isReady() {
		t.Fatal("expected ready with a running channel")
	}
}

func TestSenderNamePrefersUsername(t *testing.T) {
	t.Parallel()

	in := bus.InboundMessage{SenderID: "42", Metadata: map[string]string{"username": "alice"}}
	if got := senderName(in); got != "alice" {
		t.Fatalf("senderName = %q, want %q", got, "alice")
	}

	in.Metadata = nil
	if got := senderName(in); got != "42" {
		t.Fatalf("senderName = %q, want %q", got, "42")
	}
}

func TestNewServiceValidatesInputs(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	if _, err := NewService(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error without config")
	}
	if _, err := NewService(cfg, nil, nil, nil); err == nil {
		t.Fatal("expected error without dispatcher")
	}
	if _, err := NewService(cfg, &stubDispatcher{}, []channel.Adapter{}, nil); err == nil {
		t.Fatal("expected error without adapters")
	}
}
