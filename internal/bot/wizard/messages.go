package wizard

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	msgProductMissing = "❌ Товар не знайдено."
	msgProductLoad    = "❌ Помилка: не вдалося завантажити товар."

	msgColorPrompt = "🎨 Оберіть колір:"
	msgSizePrompt  = "📏 Оберіть розмір:"

	msgName        = "👤 Введіть ваше ім'я:"
	msgNameText    = "❌ Будь ласка, введіть ваше ім'я текстом."
	msgSurnameText = "❌ Будь ласка, введіть ваше прізвище текстом."
	msgSurname     = "👤 Введіть ваше прізвище:"
	msgPhone       = "📱 Введіть ваш номер телефону:\n(наприклад: +380501234567)"
	msgPhoneRetry  = "❌ Неправильний формат телефону. Спробуйте ще раз:\n(наприклад: +380501234567)"
	msgPhoneText   = "❌ Будь ласка, введіть номер телефону."

	msgCityIntro = "📦 Доставка через Нова Пошта\n\nВведіть назву вашого міста:"
	msgCityPrompt = "🏙️ Введіть назву вашого міста для доставки Нова Пошта:\n\n" +
		"💡 Підказка: використовуйте українську мову\n" +
		"Наприклад: Київ, Харків, Львів, Одеса"
	msgCitySearching = "🔍 Шукаємо ваше місто..."
	msgCityText      = "❌ Будь ласка, введіть назву міста текстом.\nНаприклад: Київ, Харків, Львів"
	msgCityMany      = "🏙️ Знайдено кілька міст з такою назвою. Оберіть потрібне:"
	msgCityPickError = "❌ Помилка вибору міста"
	msgCityNotFound = "❌ Місто не знайдено.\n\n" +
		"Перевірте назву та спробуйте ще раз.\n" +
		"Наприклад: Київ, Харків, Львів"
	msgCitySearchError = "❌ Помилка при пошуку міста. Можливі причини:\n\n" +
		"• Проблеми з підключенням до Нової Пошти\n" +
		"• Неправильно введена назва міста\n\n" +
		"Спробуйте ще раз або зверніться до підтримки."

	msgWarehouseChecking  = "🔍 Перевіряємо відділення..."
	msgWarehouseText      = "❌ Будь ласка, введіть номер відділення текстом.\nПриклади: 1, 142, 5310"
	msgWarehousePickError = "❌ Помилка вибору відділення"
	msgWarehouseFormat    = "❌ Неправильний формат номера.\n\n" +
		"Номер має складатися тільки з цифр (1-5 знаків).\n" +
		"Приклади: 1, 142, 5310\n\n" +
		"Спробуйте ще раз:"
	msgWarehouseListEmpty = "❌ У цьому місті немає відділень Нова Пошта."
	msgWarehouseList      = "📦 Оберіть відділення зі списку:"
	msgWarehouseError     = "❌ Помилка перевірки відділення.\n\n" +
		"Спробуйте ще раз або зверніться до підтримки:"

	msgPaymentPrompt  = "💳 Оберіть спосіб оплати:"
	msgPaymentButtons = "❌ Будь ласка, оберіть спосіб оплати з кнопок."
	msgColorButtons   = "❌ Будь ласка, оберіть колір з кнопок."
	msgSizeButtons    = "❌ Будь ласка, оберіть розмір з кнопок."
	msgConfirmButtons = "❌ Будь ласка, скористайтеся кнопками нижче."

	msgProcessing = "⏳ Обробляємо ваше замовлення..."
	msgCancelled  = "❌ Замовлення скасовано."
	msgTimedOut   = "⏱️ Час очікування вичерпано. Замовлення скасовано.\n\n" +
		"Щоб розпочати нове замовлення, використайте /start"
	msgSubmitFailed = "❌ Помилка при оформленні замовлення.\n\n" +
		"Ваші дані збережено, ми зв'яжемося з вами вручну.\n\n" +
		"Вибачте за незручності."
	msgSuccessFmt = "✅ Замовлення №%s оформлено!\n\n" +
		"Найближчим часом з вами зв'яжеться менеджер для підтвердження.\n\n" +
		"Дякуємо за покупку! 💙"

	msgWarehousePromptFmt = "🏢 Введіть номер відділення Нова Пошта у місті %s:\n\n" +
		"Наприклад: 1, 25, 142"
	msgWarehouseMissFmt = "❌ Відділення №%s не знайдено у місті %s.\n\n" +
		"Перевірте номер або оберіть зі списку:"

	msgSizeGuide = "📖 Довідка по розмірах\n\n" +
		"XS - обхват грудей: 82-86 см\n" +
		"S - обхват грудей: 86-90 см\n" +
		"M - обхват грудей: 90-94 см\n" +
		"L - обхват грудей: 94-98 см\n" +
		"XL - обхват грудей: 98-102 см\n" +
		"XXL - обхват грудей: 102-106 см\n" +
		"3XL - обхват грудей: 106-110 см\n" +
		"4XL - обхват грудей: 110-114 см\n" +
		"5XL - обхват грудей: 114-118 см\n\n" +
		"Оберіть ваш розмір:"
)

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати", CallbackCancelOrder),
		),
	)
}

func cancelOrderKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати замовлення", CallbackCancelOrder),
		),
	)
}

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Головне меню", CallbackMainMenu),
		),
	)
}

func retryCityKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Спробувати ще раз", CallbackRetryCity),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати замовлення", CallbackCancelOrder),
		),
	)
}

func warehouseEntryKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Показати список відділень", CallbackListWarehouses),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅ Змінити місто", CallbackChangeCity),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати замовлення", CallbackCancelOrder),
		),
	)
}

func changeCityKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅ Змінити місто", CallbackChangeCity),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати замовлення", CallbackCancelOrder),
		),
	)
}

func paymentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📮 Післяплата", CallbackPaymentPostpaid),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Передоплата на карту", CallbackPaymentPrepaid),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати", CallbackCancelOrder),
		),
	)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Підтвердити", CallbackConfirmOrder),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Редагувати", CallbackEditOrder),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати", CallbackCancelOrder),
		),
	)
}

func colorKeyboard(colors []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(colors)+1)
	for _, color := range colors {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(color, CallbackColorPrefix+color),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати", CallbackCancelOrder),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func sizeKeyboard(sizes []string, withGuide bool) tgbotapi.InlineKeyboardMarkup {
	const sizesPerRow = 3

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(sizes); i += sizesPerRow {
		end := i + sizesPerRow
		if end > len(sizes) {
			end = len(sizes)
		}
		row := make([]tgbotapi.InlineKeyboardButton, 0, sizesPerRow)
		for _, size := range sizes[i:end] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(size, CallbackSizePrefix+size))
		}
		rows = append(rows, row)
	}
	if withGuide {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 Довідка по розмірах", CallbackSizeGuide),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати", CallbackCancelOrder),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
