package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yukikurage/chainboard/internal/models"
)

// DefaultTelegramAPIBase is the public Bot API endpoint.
const DefaultTelegramAPIBase = "https://api.telegram.org"

// TelegramDispatcher relays messages through the Telegram Bot API.
type TelegramDispatcher struct {
	endpoint string
	client   *http.Client
}

// NewTelegramDispatcher creates a dispatcher talking to baseURL
func NewTelegramDispatcher(baseURL string, timeout time.Duration) *TelegramDispatcher {
	if baseURL == "" {
		baseURL = DefaultTelegramAPIBase
	}
	return &TelegramDispatcher{
		endpoint: strings.TrimRight(baseURL, "/") + "/bot%s/%s",
		client:   &http.Client{Timeout: timeout},
	}
}

// requestClient binds every bot API call to the caller's context.
type requestClient struct {
	ctx    context.Context
	client *http.Client
}

func (c requestClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// Dispatch sends message to the configured chat. Numeric chat ids address a
// chat directly; anything else is treated as a channel username.
func (d *TelegramDispatcher) Dispatch(ctx context.Context, settings models.NotificationSettings, message string) error {
	if !settings.Configured() {
		return ErrChannelNotConfigured
	}

	bot, err := tgbotapi.NewBotAPIWithClient(settings.BotToken, d.endpoint, requestClient{ctx: ctx, client: d.client})
	if err != nil {
		return telegramError(err)
	}

	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(settings.ChatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, message)
	} else {
		msg = tgbotapi.NewMessageToChannel(settings.ChatID, message)
	}
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := bot.Request(msg); err != nil {
		return telegramError(err)
	}
	return nil
}

func telegramError(err error) error {
	var apiErr *tgbotapi.Error
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message == "" {
			return errors.New("telegram API error: Unknown error")
		}
		return fmt.Errorf("telegram API error: %s", apiErr.Message)
	case errors.Is(err, io.EOF), errors.As(err, &syntaxErr):
		return errors.New("telegram API error: Unknown error")
	default:
		return fmt.Errorf("telegram request failed: %w", err)
	}
}
