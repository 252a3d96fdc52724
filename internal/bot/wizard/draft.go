package wizard

import (
	"fmt"
	"regexp"
	"strings"

	"vidoma-bot/internal/storage"
	"vidoma-bot/pkg/novaposhta"
)

var (
	phonePattern     = regexp.MustCompile(`^\+?3?8?0\d{9}$`)
	phoneNoise       = regexp.MustCompile(`[-\s()]`)
	warehousePattern = regexp.MustCompile(`^\d{1,5}$`)
)

// Draft is the in-progress order owned by a single wizard instance. Fields
// are populated sequentially; the product snapshot is fetched once at entry
// and never refreshed.
type Draft struct {
	ProductID int64
	Product   *storage.Product

	AvailableColors []string
	AvailableSizes  []string
	SelectedColor   string
	SelectedSize    string

	FirstName string
	LastName  string
	Phone     string

	City        *novaposhta.City
	Warehouse   *novaposhta.Warehouse
	CityMatches []novaposhta.City

	PaymentMethod string
}

// IsValidPhone checks the Ukrainian mobile-number format, ignoring common
// separators.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phoneNoise.ReplaceAllString(phone, ""))
}

// IsValidWarehouseNumber accepts a 1-5 digit branch or locker number.
func IsValidWarehouseNumber(number string) bool {
	return warehousePattern.MatchString(number)
}

// CustomerName joins first and last name the way the CRM expects.
func (d *Draft) CustomerName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// DisplayName builds the product line name with selected variants appended.
// Catalog imports occasionally leak the variants JSON into the name itself,
// so anything from the JSON marker on is dropped.
func (d *Draft) DisplayName() string {
	name := d.Product.Name
	if idx := strings.Index(name, `({"colors"`); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}

	var variants []string
	if d.SelectedColor != "" {
		variants = append(variants, d.SelectedColor)
	}
	if d.SelectedSize != "" {
		variants = append(variants, d.SelectedSize)
	}
	if len(variants) > 0 {
		name += " - " + strings.Join(variants, ", ")
	}
	return name
}

// Notes builds the free-text order comment for the CRM.
func (d *Draft) Notes() string {
	notes := "The order from the telegram bot. "
	if d.SelectedColor != "" {
		notes += fmt.Sprintf("Колір: %s. ", d.SelectedColor)
	}
	if d.SelectedSize != "" {
		notes += fmt.Sprintf("Розмір: %s", d.SelectedSize)
	}
	return strings.TrimSpace(notes)
}

// Summary renders the confirmation screen.
func (d *Draft) Summary() string {
	var b strings.Builder
	b.WriteString("📋 Підтвердження замовлення\n\n")
	b.WriteString(fmt.Sprintf("👤 Ім'я: %s\n", d.FirstName))
	b.WriteString(fmt.Sprintf("👤 Прізвище: %s\n", d.LastName))
	b.WriteString(fmt.Sprintf("📱 Телефон: %s\n", d.Phone))
	b.WriteString(fmt.Sprintf("📦 Товар: %s\n", d.Product.Name))
	if d.SelectedColor != "" {
		b.WriteString(fmt.Sprintf("🎨 Колір: %s\n", d.SelectedColor))
	}
	if d.SelectedSize != "" {
		b.WriteString(fmt.Sprintf("📏 Розмір: %s\n", d.SelectedSize))
	}
	b.WriteString(fmt.Sprintf("💰 Ціна: %g₴\n", d.Product.EffectivePrice()))
	if d.City != nil && d.Warehouse != nil {
		b.WriteString(fmt.Sprintf("🚚 Доставка: %s\n", DeliveryMethod))
		b.WriteString(fmt.Sprintf("🏙️ Місто: %s (%s)\n", d.City.Name, d.City.Area))
		b.WriteString(fmt.Sprintf("📦 Відділення: №%s - %s\n",
			d.Warehouse.Number, truncateRunes(d.Warehouse.Description, 50)))
	}
	b.WriteString(fmt.Sprintf("💳 Оплата: %s\n\n", d.PaymentMethod))
	b.WriteString("✅ Підтвердити замовлення?")
	return b.String()
}

// OrderSummaryHeader renders the short recap shown before identity capture.
func (d *Draft) OrderSummaryHeader() string {
	var b strings.Builder
	b.WriteString("🛒 Ваше замовлення:\n")
	b.WriteString(fmt.Sprintf("📦 %s\n", d.Product.Name))
	if d.SelectedColor != "" {
		b.WriteString(fmt.Sprintf("🎨 Колір: %s\n", d.SelectedColor))
	}
	if d.SelectedSize != "" {
		b.WriteString(fmt.Sprintf("📏 Розмір: %s\n", d.SelectedSize))
	}
	b.WriteString(fmt.Sprintf("💰 Ціна: %g₴\n\n", d.Product.EffectivePrice()))
	return b.String()
}

// DeliveryAddress is the human-readable shipping line for the CRM.
func (d *Draft) DeliveryAddress() string {
	if d.City == nil || d.Warehouse == nil {
		return ""
	}
	return fmt.Sprintf("%s, відділення №%s", d.City.Name, d.Warehouse.Number)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
