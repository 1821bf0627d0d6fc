package builtin

import (
	"context"
	"testing"
	"time"

	"chatdispatch/pkg/handler"
	"chatdispatch/pkg/message"
)

func TestHandlersRender(t *testing.T) {
	t.Parallel()

	r := handler.NewRegistry()
	if _, err := r.RegisterAll(Handlers()); err != nil {
		t.Fatalf("RegisterAll error: %v", err)
	}

	tests := []struct {
		msgType string
		content string
		want    string
	}{
		{msgType: TypeText, content: "hello", want: "[text] alice: hello"},
		{msgType: TypeImage, content: "sunset.jpg", want: "[image] alice shared an image: sunset.jpg"},
		{msgType: TypeLocation, content: "52.52,13.40", want: "[location] alice shared a location: 52.52,13.40"},
	}

	for _, tt := range tests {
		def, ok := r.Lookup(tt.msgType)
		if !ok {
			t.Fatalf("no handler for %q", tt.msgType)
		}

		got, err := def.Invoke(context.Background(), message.NewContext(tt.content, time.Now(), "alice"))
		if err != nil {
			t.Fatalf("%s handler error: %v", tt.msgType, err)
		}
		if got != tt.want {
			t.Fatalf("%s handler = %q, want %q", tt.msgType, got, tt.want)
		}
	}
}
