// Package notify delivers generated documents to a messaging chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"quotegen/internal/config"
	"quotegen/internal/model"
)

var ErrNotConfigured = errors.New("notifier is not configured")

// Notifier sends a caption and the generated files to a fixed recipient.
type Notifier interface {
	Notify(ctx context.Context, caption string, files []model.GeneratedFile) error
}

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts each file as a document to one chat. The caption goes with
// the first file, or as a plain message when there are no files.
type Telegram struct {
	bot    Sender
	chatID int64
}

// NewTelegram authenticates the bot with getMe, through a traced HTTP client.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return NewTelegramWithSender(bot, cfg.ChatID), nil
}

func NewTelegramWithSender(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// Notify attempts every file even if an earlier one failed, and reports all failures.
func (t *Telegram) Notify(ctx context.Context, caption string, files []model.GeneratedFile) error {
	if len(files) == 0 {
		if caption == "" {
			return nil
		}
		_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, caption))
		return err
	}

	var errs []error
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data})
		if i == 0 {
			doc.Caption = caption
		}
		if _, err := t.bot.Send(doc); err != nil {
			errs = append(errs, fmt.Errorf("send %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}
