package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chatdispatch/pkg/bus"
	"chatdispatch/pkg/channel"
	"chatdispatch/pkg/config"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"
const messagePreviewLimit = 240
const typingRefreshInterval = 4 * time.Second

const (
	typeText     = "text"
	typeImage    = "image"
	typeLocation = "location"
)

// Adapter turns Telegram updates into typed inbound messages and sends the
// dispatch result back to the originating chat.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	log       *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards messages through the shared channel handler.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	options, err := a.botOptions()
	if err != nil {
		return err
	}

	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token), options...)
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			inbound, ok := inboundFromUpdate(update)
			if !ok {
				continue
			}
			if !a.senderAllowed(inbound.SenderID) {
				a.log.Debug("Ignoring message from unauthorized sender", "sender_id", inbound.SenderID)
				continue
			}

			a.log.Info("Received message", "chat_id", inbound.ChatID, "sender_id", inbound.SenderID, "type", inbound.Type, "content", previewText(fmt.Sprint(inbound.Content)))

			chatID := update.Message.Chat.ID
			stopTyping := a.startTypingIndicator(ctx, bot, chatID)

			outbound, err := handler(ctx, inbound)
			stopTyping()
			if err != nil {
				a.log.Error("Failed to process inbound message", "error", err)
				outbound = bus.OutboundMessage{Error: err.Error()}
			}

			responseText := replyText(outbound)
			if responseText == "" {
				continue
			}
			a.log.Info("Sending message", "chat_id", inbound.ChatID, "content", previewText(responseText))

			if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), responseText)); err != nil {
				a.log.Error("Failed to send telegram message", "error", err)
			}
		}
	}
}

// botOptions routes Bot API traffic through channels.telegram.proxy when set.
func (a *Adapter) botOptions() ([]telego.BotOption, error) {
	proxy := strings.TrimSpace(a.cfg.Proxy)
	if proxy == "" {
		return nil, nil
	}

	proxyURL, err := url.Parse(proxy)
	if err != nil || proxyURL.Host == "" {
		return nil, fmt.Errorf("invalid channels.telegram.proxy %q", proxy)
	}

	client := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}
	return []telego.BotOption{telego.WithHTTPClient(client)}, nil
}

// inboundFromUpdate classifies one Telegram message as text, image or
// location. Other updates are ignored.
func inboundFromUpdate(update telego.Update) (bus.InboundMessage, bool) {
	message := update.Message
	if message == nil || message.From == nil {
		return bus.InboundMessage{}, false
	}

	inbound := bus.InboundMessage{
		Channel:  channelName,
		SenderID: strconv.FormatInt(message.From.ID, 10),
		ChatID:   strconv.FormatInt(message.Chat.ID, 10),
		Metadata: map[string]string{
			"update_id": strconv.Itoa(update.UpdateID),
		},
	}
	if username := strings.TrimSpace(message.From.Username); username != "" {
		inbound.Metadata["username"] = username
	}

	switch {
	case message.Location != nil:
		inbound.Type = typeLocation
		inbound.Content = fmt.Sprintf("%.6f,%.6f", message.Location.Latitude, message.Location.Longitude)
	case len(message.Photo) > 0:
		// Telegram lists photo sizes smallest first.
		photo := message.Photo[len(message.Photo)-1]
		inbound.Type = typeImage
		inbound.Content = photo.FileID
		if caption := strings.TrimSpace(message.Caption); caption != "" {
			inbound.Metadata["caption"] = caption
		}
	case strings.TrimSpace(message.Text) != "":
		inbound.Type = typeText
		inbound.Content = strings.TrimSpace(message.Text)
	default:
		return bus.InboundMessage{}, false
	}

	return inbound, true
}

func replyText(outbound bus.OutboundMessage) string {
	if text := strings.TrimSpace(outbound.Content); text != "" {
		return text
	}

	return strings.TrimSpace(outbound.Error)
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= messagePreviewLimit {
		return string(runes)
	}

	return string(runes[:messagePreviewLimit]) + "..."
}

// startTypingIndicator sends an initial typing action and refreshes it periodically
// until the returned cancel function is called.
func (a *Adapter) startTypingIndicator(ctx context.Context, bot *telego.Bot, chatID int64) context.CancelFunc {
	typingCtx, cancel := context.WithCancel(ctx)

	sendTyping := func() {
		if err := bot.SendChatAction(typingCtx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)); err != nil && typingCtx.Err() == nil {
			a.log.Debug("Failed to send typing indicator", "chat_id", chatID, "error", err)
		}
	}

	sendTyping()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				sendTyping()
			}
		}
	}()

	return cancel
}
