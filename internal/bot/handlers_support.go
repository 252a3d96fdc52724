package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Settings keys for the support contact card, editable through the admin API.
const (
	settingSupportPhone    = "support_phone"
	settingSupportTelegram = "support_telegram"
	settingSupportHours    = "support_hours"
)

func (b *Bot) showSupport(ctx context.Context, chatID int64) {
	settings, err := b.storage.GetSettings(ctx)
	if err != nil {
		b.logger.Error("Failed to load settings",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		settings = map[string]string{}
	}

	phone := settings[settingSupportPhone]
	telegram := settings[settingSupportTelegram]
	hours := settings[settingSupportHours]
	if hours == "" {
		hours = "Пн-Сб, 9:00-18:00"
	}

	text := "📞 Підтримка\n\n"
	if phone != "" {
		text += fmt.Sprintf("Телефон: %s\n", phone)
	}
	if telegram != "" {
		text += fmt.Sprintf("Telegram: %s\n", telegram)
	}
	text += fmt.Sprintf("Графік: %s\n\n", hours)
	text += "Напишіть нам, і менеджер відповість якнайшвидше 💙"

	b.send(tgbotapi.NewMessage(chatID, text))
}
