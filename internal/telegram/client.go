// Package telegram is the thin Bot API transport: send messages, long-poll
// updates, dispatch to handlers. No business logic lives here.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Button is one inline keyboard button.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Update is a partial Telegram update: only the fields the bot reads.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message,omitempty"`
	CallbackQuery *struct {
		ID   string `json:"id"`
		Data string `json:"data"`
		From struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
		Message struct {
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query,omitempty"`
}

type apiResponse struct {
	OK          bool     `json:"ok"`
	Result      []Update `json:"result"`
	Description string   `json:"description"`
	ErrorCode   int      `json:"error_code"`
}

// Client talks to the Bot API for one bot token and one authorized chat.
type Client struct {
	http   *resty.Client
	chatID int64
	log    zerolog.Logger
}

// New creates a Client.
func New(token string, chatID int64, log zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL("https://api.telegram.org/bot" + token).
		SetTimeout(75 * time.Second) // must exceed the long-poll window

	return &Client{
		http:   http,
		chatID: chatID,
		log:    log.With().Str("component", "telegram").Logger(),
	}
}

// WithEndpoint overrides the Bot API base URL. Used against test doubles.
func (c *Client) WithEndpoint(url string) *Client {
	c.http.SetBaseURL(url)
	return c
}

// ChatID returns the authorized chat id.
func (c *Client) ChatID() int64 { return c.chatID }

// SendMessage pushes a Markdown message to the configured chat.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	return c.send(ctx, map[string]any{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
}

// SendKeyboard pushes a message with one row of inline buttons.
func (c *Client) SendKeyboard(ctx context.Context, text string, buttons []Button) error {
	return c.send(ctx, map[string]any{
		"chat_id":      c.chatID,
		"text":         text,
		"parse_mode":   "Markdown",
		"reply_markup": map[string]any{"inline_keyboard": [][]Button{buttons}},
	})
}

func (c *Client) send(ctx context.Context, payload map[string]any) error {
	var resp apiResponse
	r, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&resp).
		SetError(&resp).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	if r.IsError() || !resp.OK {
		return fmt.Errorf("telegram sendMessage: %s (code %d)", resp.Description, resp.ErrorCode)
	}
	return nil
}

// AnswerCallback acknowledges a callback query so the client stops showing a
// spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	var resp apiResponse
	_, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"callback_query_id": callbackID, "text": text}).
		SetResult(&resp).
		Post("/answerCallbackQuery")
	return err
}

// Updates long-polls getUpdates once and returns the batch.
func (c *Client) Updates(ctx context.Context, offset int64) ([]Update, error) {
	var resp apiResponse
	r, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"offset":  fmt.Sprintf("%d", offset),
			"timeout": "60",
		}).
		SetResult(&resp).
		SetError(&resp).
		Get("/getUpdates")
	if err != nil {
		return nil, err
	}
	if r.IsError() || !resp.OK {
		return nil, fmt.Errorf("telegram getUpdates: %s (code %d)", resp.Description, resp.ErrorCode)
	}
	return resp.Result, nil
}
