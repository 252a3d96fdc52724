package ai

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"vidoma-bot/internal/storage"
)

func catalogFixture() []storage.Product {
	return []storage.Product{
		{Name: "Піжама Cloud", Price: 1200},
		{Name: "Халат Soft", Price: 900, CategoryName: sql.NullString{String: "Халати", Valid: true}},
		{Name: "Піжама Cozy", Price: 1100},
		{Name: "Рушник", Price: 300},
	}
}

func TestMentionedProducts(t *testing.T) {
	answer := "Раджу Піжама Cloud або Халат Soft, вони чудово підійдуть."

	mentioned := MentionedProducts(answer, catalogFixture())

	assert.Len(t, mentioned, 2)
	assert.Equal(t, "Піжама Cloud", mentioned[0].Name)
	assert.Equal(t, "Халат Soft", mentioned[1].Name)
}

func TestMentionedProductsCaseInsensitive(t *testing.T) {
	mentioned := MentionedProducts("подивіться на ПІЖАМА CLOUD", catalogFixture())
	assert.Len(t, mentioned, 1)
}

func TestMentionedProductsCap(t *testing.T) {
	products := []storage.Product{
		{Name: "A1"}, {Name: "A2"}, {Name: "A3"}, {Name: "A4"},
	}
	mentioned := MentionedProducts("a1 a2 a3 a4", products)
	assert.Len(t, mentioned, maxSuggestions)
}

func TestMentionedProductsNone(t *testing.T) {
	mentioned := MentionedProducts("На жаль, нічого не підібрав.", catalogFixture())
	assert.Empty(t, mentioned)
}

func TestSystemPromptListsCatalog(t *testing.T) {
	prompt := systemPrompt(catalogFixture())

	assert.Contains(t, prompt, "Vidoma")
	assert.Contains(t, prompt, "Піжама Cloud")
	assert.Contains(t, prompt, "Халат Soft (Халати)")
	assert.Contains(t, prompt, "900 грн")
}

func TestRateLimiterPerUser(t *testing.T) {
	c := New("", nil, nil)

	first := c.limiter(1)
	second := c.limiter(2)
	assert.NotSame(t, first, second)
	assert.Same(t, first, c.limiter(1))
}
