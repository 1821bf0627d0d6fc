// Package builtin provides the stock handlers for text, image and location messages.
package builtin

import (
	"context"
	"fmt"

	"chatdispatch/pkg/handler"
	"chatdispatch/pkg/message"
)

const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeLocation = "location"

	defaultPriority = 1
)

// Handlers returns the stock handler set.
func Handlers() handler.Definitions {
	return handler.Definitions{
		{Type: TypeText, Priority: defaultPriority, Name: "builtin.text", Invoke: handleText},
		{Type: TypeImage, Priority: defaultPriority, Name: "builtin.image", Invoke: handleImage},
		{Type: TypeLocation, Priority: defaultPriority, Name: "builtin.location", Invoke: handleLocation},
	}
}

func handleText(_ context.Context, msg *message.Context) (string, error) {
	return fmt.Sprintf("[text] %s: %v", msg.Sender(), msg.Content()), nil
}

func handleImage(_ context.Context, msg *message.Context) (string, error) {
	return fmt.Sprintf("[image] %s shared an image: %v", msg.Sender(), msg.Content()), nil
}

func handleLocation(_ context.Context, msg *message.Context) (string, error) {
	return fmt.Sprintf("[location] %s shared a location: %v", msg.Sender(), msg.Content()), nil
}
