package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quotegen/internal/config"
	"quotegen/internal/model"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func files() []model.GeneratedFile {
	return []model.GeneratedFile{
		{Kind: model.KindQuotation, Name: "КП_42.docx", Data: []byte("kp")},
		{Kind: model.KindSupplySpec, Name: "Spec_Postavka_42.docx", Data: []byte("spec")},
	}
}

func TestTelegram_Notify(t *testing.T) {
	bot := new(mockSender)
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.DocumentConfig) bool {
		fb, ok := c.File.(tgbotapi.FileBytes)
		return ok && c.ChatID == 777 && fb.Name == "КП_42.docx" && c.Caption == "КП №42"
	})).Return(nil).Once()
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.DocumentConfig) bool {
		fb, ok := c.File.(tgbotapi.FileBytes)
		return ok && fb.Name == "Spec_Postavka_42.docx" && c.Caption == ""
	})).Return(nil).Once()

	err := NewTelegramWithSender(bot, 777).Notify(context.Background(), "КП №42", files())
	require.NoError(t, err)
	bot.AssertExpectations(t)
}

func TestTelegram_NotifyContinuesAfterFailure(t *testing.T) {
	bot := new(mockSender)
	bot.On("Send", mock.Anything).Return(errors.New("Bad Request: chat not found")).Once()
	bot.On("Send", mock.Anything).Return(nil).Once()

	err := NewTelegramWithSender(bot, 1).Notify(context.Background(), "", files())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "КП_42.docx")
	bot.AssertNumberOfCalls(t, "Send", 2)
}

func TestTelegram_NotifyWithoutFiles(t *testing.T) {
	bot := new(mockSender)
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.MessageConfig) bool {
		return c.Text == "nothing generated"
	})).Return(nil).Once()

	tg := NewTelegramWithSender(bot, 1)
	require.NoError(t, tg.Notify(context.Background(), "nothing generated", nil))
	require.NoError(t, tg.Notify(context.Background(), "", nil))
	bot.AssertNumberOfCalls(t, "Send", 1)
}

func TestTelegram_NotifyCanceled(t *testing.T) {
	bot := new(mockSender)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTelegramWithSender(bot, 1).Notify(ctx, "x", files())
	assert.ErrorIs(t, err, context.Canceled)
	bot.AssertNotCalled(t, "Send", mock.Anything)
}

func TestNewTelegram_NotConfigured(t *testing.T) {
	_, err := NewTelegram(config.TelegramConfig{Token: "abc"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
