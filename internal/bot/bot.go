package bot

import (
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of the Telegram API the bot needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot delivers due-review reminders over Telegram. It implements
// scheduler.Notifier.
type Bot struct {
	api    sender
	config *BotConfig
	logger *log.Logger

	mu       sync.Mutex
	lastSent time.Time
}

// New authorizes against the Telegram API with token.
func New(token string, config *BotConfig, logger *log.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("Authorized on account %s", botAPI.Self.UserName)
	return newBot(botAPI, config, logger), nil
}

func newBot(api sender, config *BotConfig, logger *log.Logger) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{api: api, config: config, logger: logger}
}

// SendReminders implements the scheduler.Notifier interface. Users are
// reached in their private chat, whose ID equals the user ID.
func (b *Bot) SendReminders(userID int64, count int) error {
	b.throttle()

	msg := tgbotapi.NewMessage(userID, ReminderText(count, b.config.PracticeHint))
	msg.DisableNotification = b.config.Silent
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to user %d: %w", userID, err)
	}
	b.logger.Printf("Successfully sent reminder to user %d for %d questions", userID, count)
	return nil
}

func (b *Bot) throttle() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if wait := b.config.SendInterval - time.Since(b.lastSent); wait > 0 {
		time.Sleep(wait)
	}
	b.lastSent = time.Now()
}

// ReminderText is the reminder message body.
func ReminderText(count int, hint string) string {
	noun := "questions"
	if count == 1 {
		noun = "question"
	}
	text := fmt.Sprintf("You have %d %s due for review today!", count, noun)
	if hint != "" {
		text += " " + hint
	}
	return text
}

// LogNotifier writes reminders to the log. It stands in for the bot when no
// Telegram token is configured.
type LogNotifier struct {
	Logger *log.Logger
}

// SendReminders implements the scheduler.Notifier interface.
func (n LogNotifier) SendReminders(userID int64, count int) error {
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("Reminder for user %d: %s", userID, ReminderText(count, ""))
	return nil
}
