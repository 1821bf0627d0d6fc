package message

import (
	"time"
	"unicode/utf8"
)

// Context is the read-only view of one message handed to middleware and handlers.
type Context struct {
	content   any
	timestamp time.Time
	sender    string
}

// NewContext captures one message. The returned value is never modified afterwards.
func NewContext(content any, timestamp time.Time, sender string) *Context {
	return &Context{
		content:   content,
		timestamp: timestamp,
		sender:    sender,
	}
}

// Content returns the raw message payload (text or structured value).
func (c *Context) Content() any {
	if c == nil {
		return nil
	}

	return c.content
}

// Text returns the payload when it is textual.
func (c *Context) Text() (string, bool) {
	if c == nil {
		return "", false
	}

	text, ok := c.content.(string)
	return text, ok
}

func (c *Context) Timestamp() time.Time {
	if c == nil {
		return time.Time{}
	}

	return c.timestamp
}

func (c *Context) Sender() string {
	if c == nil {
		return ""
	}

	return c.sender
}

// TextLength reports the length of textual content in characters.
func TextLength(content any) (int, bool) {
	text, ok := content.(string)
	if !ok {
		return 0, false
	}

	return utf8.RuneCountInString(text), true
}
