// services/telegram.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"bearpay-waitlist/models"
)

// ApprovalNotifier is the bot surface the settlement workflow uses for its
// human-in-the-loop review thread.
type ApprovalNotifier interface {
	NotifierConfigured() bool
	SendApprovalRequest(ctx context.Context, item *models.AirdropQueueItem) (messageID int, err error)
	EditMessageText(ctx context.Context, messageID int, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// TelegramClient drives the admin approval thread via the Bot API.
type TelegramClient struct {
	BotToken   string
	ChatID     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewTelegramClientFromEnv() *TelegramClient {
	c := &TelegramClient{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		BaseURL:  "https://api.telegram.org",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	if c.BotToken == "" || c.ChatID == "" {
		log.Println("⚠️  Telegram credentials not set — settlement approvals disabled")
	}
	return c
}

func (c *TelegramClient) NotifierConfigured() bool {
	return c.BotToken != "" && c.ChatID != ""
}

func (c *TelegramClient) call(ctx context.Context, method string, payload any, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.BaseURL, c.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram %s returned %d: %s", method, resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode telegram %s response: %w", method, err)
		}
	}
	return nil
}

// SendApprovalRequest posts the review message with inline approve/reject
// buttons and returns its message id so later transitions edit it in place.
func (c *TelegramClient) SendApprovalRequest(ctx context.Context, item *models.AirdropQueueItem) (int, error) {
	if !c.NotifierConfigured() {
		return 0, ErrNotConfigured
	}

	text := fmt.Sprintf(
		"🪙 Airdrop payout request\n\nEmail: %s\nWallet: %s\nAmount: %d BEAR\nReason: %s",
		item.ReferrerEmail, item.ReferrerWallet, item.Amount, item.Reason,
	)
	payload := map[string]any{
		"chat_id": c.ChatID,
		"text":    text,
		"reply_markup": map[string]any{
			"inline_keyboard": [][]map[string]string{
				{
					{"text": "✅ Approve", "callback_data": "approve:" + item.ID},
					{"text": "❌ Reject", "callback_data": "reject:" + item.ID},
				},
			},
		},
	}

	var out struct {
		Result struct {
			MessageID int `json:"message_id"`
		} `json:"result"`
	}
	if err := c.call(ctx, "sendMessage", payload, &out); err != nil {
		return 0, err
	}
	return out.Result.MessageID, nil
}

// EditMessageText rewrites the original approval message so the thread stays
// a single mutable record of final state.
func (c *TelegramClient) EditMessageText(ctx context.Context, messageID int, text string) error {
	if !c.NotifierConfigured() {
		return ErrNotConfigured
	}
	payload := map[string]any{
		"chat_id":    c.ChatID,
		"message_id": messageID,
		"text":       text,
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallbackQuery acknowledges the button press so the admin UI clears
// its pending spinner.
func (c *TelegramClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	if !c.NotifierConfigured() {
		return ErrNotConfigured
	}
	payload := map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// TelegramUpdate is the slice of the Bot API webhook payload the settlement
// workflow consumes.
type TelegramUpdate struct {
	UpdateID      int64                  `json:"update_id"`
	CallbackQuery *TelegramCallbackQuery `json:"callback_query"`
}

type TelegramCallbackQuery struct {
	ID   string `json:"id"`
	From struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	} `json:"from"`
	Message *TelegramCallbackMessage `json:"message"`
	Data    string                   `json:"data"`
}

type TelegramCallbackMessage struct {
	MessageID int `json:"message_id"`
}
