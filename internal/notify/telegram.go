// Package notify pushes operator alerts for heat-ladder transitions and
// kill-switch flips.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wyckoff/internal/logger"

	"golang.org/x/time/rate"
)

// TextNotifier is the minimal alert sink the pipeline depends on.
type TextNotifier interface {
	SendText(text string) error
}

// Telegram pushes alert text to a chat/channel. Delivery sits outside the
// execution hot path, so it retries with increasing delays; a persistent
// failure is logged and dropped, never blocking the pipeline.
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client

	limiter *rate.Limiter
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 15 * time.Second},
		// At most one message a second sustained, small burst for state
		// flips that arrive together.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// SendText delivers text with up to 3 attempts at increasing delays.
func (t *Telegram) SendText(text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram notifier is not configured")
	}
	if t.limiter != nil && !t.limiter.Allow() {
		logger.Debugf("Telegram: rate limited, dropping alert")
		return nil
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)
	payload := map[string]any{
		"chat_id": t.ChatID,
		"text":    text,
	}
	body, _ := json.Marshal(payload)

	var lastErr error
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}

// Noop discards alerts; used when no notifier is configured.
type Noop struct{}

func (Noop) SendText(string) error { return nil }
