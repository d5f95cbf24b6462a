package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pizza-service/internal/apperr"
	"pizza-service/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers a rendered message to the operator
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// TelegramNotifier posts messages to an admin chat through the Bot API
type TelegramNotifier struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
}

// NewTelegramNotifier creates a notifier for the bot token and chat
func NewTelegramNotifier(apiURL, token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID         string `json:"chat_id"`
	Text           string `json:"text"`
	ProtectContent bool   `json:"protect_content"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send implements Notifier
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text, ProtectContent: true})
	if err != nil {
		return t.fail(err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return t.fail(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return t.fail(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var parsed apiResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode/100 != 2 || !parsed.OK {
		desc := parsed.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return t.fail(fmt.Errorf("telegram api status %d: %s", resp.StatusCode, desc))
	}
	return nil
}

// fail classifies err. Transport errors carry the request URL, which holds
// the bot token, so the token is masked before the error leaves Send.
func (t *TelegramNotifier) fail(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && t.token != "" {
		err = &url.Error{Op: ue.Op, URL: strings.ReplaceAll(ue.URL, t.token, "<token>"), Err: ue.Err}
	}
	return &apperr.NotificationError{Channel: "telegram", Err: err}
}

// LogNotifier writes notifications to the service log. Used when no chat is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

// Send implements Notifier
func (l *LogNotifier) Send(_ context.Context, text string) error {
	l.logger.Info("Operator notification", zap.String("text", text))
	return nil
}
