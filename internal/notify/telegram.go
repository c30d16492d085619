package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
)

const (
	telegramAPI = "https://api.telegram.org"

	// telegramMaxText is the sendMessage limit after entity parsing.
	telegramMaxText = 4096
)

// TelegramSender posts to one chat through the Bot API.
type TelegramSender struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for a bot token and chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{token: token, chatID: chatID, baseURL: telegramAPI, client: defaultHTTPClient}
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send uses HTML parse mode with a bold title. Market keys such as
// batter_hits would turn into italics under Markdown.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	text := "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(message)

	err := postJSON(ctx, t.client, t.baseURL+"/bot"+t.token+"/sendMessage", telegramMessage{
		ChatID:                t.chatID,
		Text:                  truncate(text, telegramMaxText),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err == nil {
		return nil
	}

	// The Bot API explains rejections in {"ok":false,"description":...}.
	var se *statusError
	if errors.As(err, &se) {
		var reply struct {
			Description string `json:"description"`
		}
		if json.Unmarshal(se.body, &reply) == nil && reply.Description != "" {
			return fmt.Errorf("telegram: status %d: %s", se.code, reply.Description)
		}
	}
	return fmt.Errorf("telegram: %w", err)
}

// Name returns "telegram".
func (t *TelegramSender) Name() string { return "telegram" }
