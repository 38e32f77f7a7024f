// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram is a small client for the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"go.astrophena.name/megazu/internal/logger"
	"go.astrophena.name/megazu/internal/request"
)

// DefaultAPI is the Telegram Bot API endpoint.
const DefaultAPI = "https://api.telegram.org"

const (
	// Telegram allows about 30 messages per second across all chats. Only
	// sendMessage is throttled; other methods are not counted by Telegram.
	sendRate  = 25
	sendBurst = 5

	maxRetries    = 3
	maxRetryAfter = time.Minute
)

// Client talks to the Bot API on behalf of one bot.
type Client struct {
	token       string
	api         string
	httpc       *http.Client
	sendLimiter *rate.Limiter
	scrubber    *strings.Replacer
	sleep       func(context.Context, time.Duration) error
}

// New returns a Client for the bot identified by token. If httpc is nil,
// [request.DefaultClient] is used.
func New(token string, httpc *http.Client) *Client {
	return &Client{
		token:       token,
		api:         DefaultAPI,
		httpc:       httpc,
		sendLimiter: rate.NewLimiter(sendRate, sendBurst),
		scrubber:    strings.NewReplacer(token, "[EXPUNGED]"),
		sleep:       sleep,
	}
}

// Scrubber returns a replacer that masks the bot token in strings.
func (c *Client) Scrubber() *strings.Replacer { return c.scrubber }

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// call invokes a Bot API method, waiting out rate limits reported by
// Telegram with status 429. Outgoing messages also pass the local send
// limiter.
func call[T any](ctx context.Context, c *Client, method string, body any) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if method == "sendMessage" {
			if err := c.sendLimiter.Wait(ctx); err != nil {
				return zero, err
			}
		}
		resp, err := request.Make[response[T]](ctx, request.Params{
			Method:     http.MethodPost,
			URL:        c.api + "/bot" + c.token + "/" + method,
			Body:       body,
			HTTPClient: c.httpc,
			Scrubber:   c.scrubber,
		})
		if err == nil {
			if !resp.OK {
				return zero, fmt.Errorf("telegram: %s: %s", method, resp.Description)
			}
			return resp.Result, nil
		}

		wait, ok := retryAfter(err)
		if !ok || attempt >= maxRetries {
			return zero, fmt.Errorf("telegram: %s: %w", method, err)
		}
		logger.Get(ctx).Warn("rate limited by Telegram", "method", method, "retry_after", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// retryAfter extracts the wait duration from a 429 response.
func retryAfter(err error) (time.Duration, bool) {
	var se *request.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	secs := 1
	var body response[json.RawMessage]
	if json.Unmarshal(se.Body, &body) == nil && body.Parameters != nil && body.Parameters.RetryAfter > 0 {
		secs = body.Parameters.RetryAfter
	} else if n, err := strconv.Atoi(se.Header.Get("Retry-After")); err == nil && n > 0 {
		secs = n
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter), true
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	return call[User](ctx, c, "getMe", nil)
}

// SetWebhook makes Telegram deliver updates to url. Telegram sends secret
// back in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	_, err := call[bool](ctx, c, "setWebhook", map[string]any{
		"url":             url,
		"secret_token":    secret,
		"allowed_updates": []string{"message"},
	})
	return err
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := call[bool](ctx, c, "deleteWebhook", nil)
	return err
}

// GetUpdates long polls for updates with ids of at least offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	return call[[]Update](ctx, c, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	})
}

// SetMyCommands replaces the command list shown by Telegram clients.
func (c *Client) SetMyCommands(ctx context.Context, cmds []BotCommand) error {
	_, err := call[bool](ctx, c, "setMyCommands", map[string]any{"commands": cmds})
	return err
}

// SendMessage sends plain text to a chat. If replyTo is non-zero, the
// message is sent as a reply.
func (c *Client) SendMessage(ctx context.Context, chatID, replyTo int64, text string) (Message, error) {
	msg := sendMessage{ChatID: chatID, Text: text}
	if replyTo != 0 {
		msg.ReplyParameters = &replyParameters{
			MessageID:                replyTo,
			AllowSendingWithoutReply: true,
		}
	}
	return call[Message](ctx, c, "sendMessage", msg)
}

// Reply answers the message messageID in chatID.
func (c *Client) Reply(ctx context.Context, chatID, messageID int64, text string) error {
	_, err := c.SendMessage(ctx, chatID, messageID, text)
	return err
}

// GetFile returns the download location of a file.
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	return call[File](ctx, c, "getFile", map[string]string{"file_id": fileID})
}

// PhotoBytes downloads the contents of a file.
func (c *Client) PhotoBytes(ctx context.Context, fileID string) ([]byte, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, fmt.Errorf("telegram: file %q has no download path", fileID)
	}
	b, err := request.Make[request.Bytes](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        c.api + "/file/bot" + c.token + "/" + f.FilePath,
		HTTPClient: c.httpc,
		Scrubber:   c.scrubber,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: downloading %q: %w", f.FilePath, err)
	}
	return b, nil
}
