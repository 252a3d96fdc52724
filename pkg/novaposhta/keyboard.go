package novaposhta

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxCityOptions      = 8
	maxWarehouseOptions = 10
)

// CitiesKeyboard formats a bounded selectable list of city matches. Telegram
// keyboards get unwieldy past a handful of rows, hence the cap.
func CitiesKeyboard(cities []City) tgbotapi.InlineKeyboardMarkup {
	if len(cities) == 0 {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("❌ Міста не знайдено", "no_cities"),
			),
		)
	}

	limited := cities
	if len(limited) > maxCityOptions {
		limited = limited[:maxCityOptions]
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(limited)+1)
	for _, city := range limited {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				city.Name+" ("+city.Area+")",
				"city_"+city.Ref,
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати", "cancel_order"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// WarehousesKeyboard formats a bounded selectable list of pickup points,
// full-service branches first.
func WarehousesKeyboard(warehouses []Warehouse) tgbotapi.InlineKeyboardMarkup {
	if len(warehouses) == 0 {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("❌ Відділення не знайдено", "no_warehouses"),
			),
		)
	}

	sorted := SortWarehouses(warehouses)
	if len(sorted) > maxWarehouseOptions {
		sorted = sorted[:maxWarehouseOptions]
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(sorted)+2)
	for _, wh := range sorted {
		label := wh.Number + " - " + truncate(wh.Description, 35)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "warehouse_"+wh.Ref),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅ Змінити місто", "change_city"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Скасувати", "cancel_order"),
		),
	)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
