package bot

import (
	"time"
)

// BotConfig represents the configuration for the reminder bot
type BotConfig struct {
	// Silent delivers reminders without a notification sound
	Silent bool
	// SendInterval spaces consecutive messages to stay under Telegram's rate limit
	SendInterval time.Duration
	// Command users are told to run to start practising
	PracticeHint string
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		SendInterval: 50 * time.Millisecond,
		PracticeHint: "Open the exam to start your review session.",
	}
}
