package notify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/noxenys/AI-Knowledge-Agent/internal/transport"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
)

// TelegramAPI is the Bot API base URL.
const TelegramAPI = "https://api.telegram.org"

// Telegram sends messages through a bot to one chat.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *transport.Client
}

// NewTelegram returns a Telegram notifier. An empty baseURL selects TelegramAPI.
func NewTelegram(token, chatID, baseURL string, timeout time.Duration) *Telegram {
	if baseURL == "" {
		baseURL = TelegramAPI
	}
	if timeout <= 0 {
		timeout = constants.NotifyTimeout
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  transport.New("telegram", &transport.NoAuth{}, transport.WithTimeout(timeout)),
	}
}

// Configured reports whether both the token and chat id are set.
func (t *Telegram) Configured() bool {
	return t.token != "" && t.chatID != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send implements Notifier. An unconfigured notifier logs and returns nil.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		logging.Ctx(ctx).Info().Msg("Telegram configuration missing, skipping notification")
		return nil
	}
	url := t.baseURL + "/bot" + t.token + "/sendMessage"
	return t.client.JSON(ctx, http.MethodPost, url, sendMessageRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "HTML",
	}, nil)
}
