package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charleschow/oddsentinel/internal/telemetry"
)

// Transport is the outbound channel, shaped like the teacher's
// discord.Notifier (internal/adapters/outbound/discord/webhook.go) but
// targeting a Telegram-style Bot API (sendMessage/pinChatMessage) per
// spec.md §4.8.
type Transport struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

const telegramBaseURL = "https://api.telegram.org"

func NewTransport(botToken, chatID string) *Transport {
	return &Transport{
		botToken:   botToken,
		chatID:     chatID,
		baseURL:    telegramBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Transport) Enabled() bool { return t.botToken != "" && t.chatID != "" }

type sendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	MessageThreadID     int    `json:"message_thread_id,omitempty"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

type sendMessageResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// SendMessage posts HTML-formatted text to topicID and returns the
// resulting message ID for later pinning.
func (t *Transport) SendMessage(ctx context.Context, topicID int, html string) (int64, error) {
	if !t.Enabled() {
		return 0, nil
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:          t.chatID,
		MessageThreadID: topicID,
		Text:            html,
		ParseMode:       "HTML",
	})
	if err != nil {
		return 0, fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		telemetry.Warnf("alert: telegram rate limited")
		return 0, fmt.Errorf("telegram rate limited")
	}
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("telegram sendMessage: status=%d", resp.StatusCode)
	}

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode telegram response: %w", err)
	}
	if !out.OK {
		return 0, fmt.Errorf("telegram sendMessage: ok=false")
	}
	return out.Result.MessageID, nil
}

// PinMessage pins messageID in the chat, used when a steam alert's line
// movement or steam index crosses the pin-worthy bar (spec.md §4.8).
func (t *Transport) PinMessage(ctx context.Context, messageID int64) error {
	if !t.Enabled() {
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"chat_id":              t.chatID,
		"message_id":           messageID,
		"disable_notification": true,
	})
	if err != nil {
		return fmt.Errorf("marshal pin payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/pinChatMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram pinChatMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram pinChatMessage: status=%d", resp.StatusCode)
	}
	return nil
}
