package bot

import (
	"bytes"
	"log"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestReminderText(t *testing.T) {
	assert.Equal(t, "You have 1 question due for review today!", ReminderText(1, ""))
	assert.Equal(t, "You have 4 questions due for review today! Go.", ReminderText(4, "Go."))
}

func TestBot_SendReminders(t *testing.T) {
	api := &fakeAPI{}
	cfg := DefaultConfig()
	cfg.SendInterval = 0
	cfg.Silent = true
	b := newBot(api, cfg, log.New(&bytes.Buffer{}, "", 0))

	require.NoError(t, b.SendReminders(42, 3))
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(42), api.sent[0].ChatID)
	assert.True(t, api.sent[0].DisableNotification)
	assert.Contains(t, api.sent[0].Text, "3 questions")
}

func TestBot_SendRemindersError(t *testing.T) {
	b := newBot(&fakeAPI{err: assert.AnError}, nil, log.New(&bytes.Buffer{}, "", 0))
	err := b.SendReminders(1, 1)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New("", nil, nil)
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: log.New(&buf, "", 0)}
	require.NoError(t, n.SendReminders(7, 2))
	assert.Contains(t, buf.String(), "user 7")
	assert.Contains(t, buf.String(), "2 questions")
}
