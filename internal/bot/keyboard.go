package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vidoma-bot/internal/storage"
)

// Main menu reply-keyboard labels. These double as routing keys for plain
// text messages.
const (
	menuCatalog   = "🛍 Каталог"
	menuAI        = "🤖 AI-консультант"
	menuOrders    = "📦 Мої замовлення"
	menuSupport   = "📞 Підтримка"
	menuSizeGuide = "📖 Розмірна сітка"
)

func mainMenuReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuCatalog),
			tgbotapi.NewKeyboardButton(menuAI),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuOrders),
			tgbotapi.NewKeyboardButton(menuSupport),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuSizeGuide),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func categoriesKeyboard(categories []storage.Category) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(categories)+1)
	for _, c := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Name, "category_"+itoa(c.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Головне меню", "main_menu"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func productsKeyboard(products []storage.Product) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Name, "product_"+itoa(p.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅ Назад", "back"),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Головне меню", "main_menu"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func productCardKeyboard(productID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Замовити", "order_"+itoa(productID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 Розмірна сітка", "size_help_"+itoa(productID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅ Назад", "back"),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Головне меню", "main_menu"),
		),
	)
}

func aiModeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Вийти з режиму консультанта", "ai_exit"),
		),
	)
}

func aiProductsKeyboard(products []storage.Product) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 "+p.Name, "product_"+itoa(p.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Вийти з режиму консультанта", "ai_exit"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
