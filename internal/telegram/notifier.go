// Package telegram mirrors reminders to users who linked a Telegram chat.
package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends plain text reminders to linked chats.
type Notifier struct {
	bot *tgbotapi.BotAPI
}

// New creates a Notifier from a bot token.
func New(token string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return &Notifier{bot: bot}, nil
}

// SendMessage sends a plain text message to the given chat.
func (n *Notifier) SendMessage(chatID int64, text string) error {
	_, err := n.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
