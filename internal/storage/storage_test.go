package storage

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProductVariants(t *testing.T) {
	p := Product{Description: sql.NullString{
		String: `{"colors":["Синій","Бежевий"],"sizes":["S","M"]}`,
		Valid:  true,
	}}

	v := p.Variants()
	assert.Equal(t, []string{"Синій", "Бежевий"}, v.Colors)
	assert.Equal(t, []string{"S", "M"}, v.Sizes)
}

func TestProductVariantsPlainDescription(t *testing.T) {
	p := Product{Description: sql.NullString{
		String: "Затишна піжама з фланелі",
		Valid:  true,
	}}

	v := p.Variants()
	assert.Empty(t, v.Colors)
	assert.Empty(t, v.Sizes)
}

func TestProductVariantsNullDescription(t *testing.T) {
	var p Product
	v := p.Variants()
	assert.Empty(t, v.Colors)
	assert.Empty(t, v.Sizes)
}

func TestEffectivePrice(t *testing.T) {
	p := Product{Price: 1500}
	assert.Equal(t, float64(1500), p.EffectivePrice())

	p.SalePrice = sql.NullFloat64{Float64: 1200, Valid: true}
	assert.Equal(t, float64(1200), p.EffectivePrice())
}

func TestSplitStatements(t *testing.T) {
	dump := "-- comment line\nINSERT INTO a VALUES (1);\n\nINSERT INTO b VALUES (2);\n"

	statements := splitStatements(dump)
	assert.Len(t, statements, 2)
	assert.Contains(t, statements[0], "INSERT INTO a")
	assert.Contains(t, statements[1], "INSERT INTO b")
}

func TestJoinSQLValues(t *testing.T) {
	ts := time.Date(2026, 8, 1, 14, 30, 0, 0, time.UTC)

	rendered := joinSQLValues([]any{
		nil,
		"о'значення",
		[]byte("bytes"),
		int64(42),
		true,
		ts,
	})

	assert.Equal(t,
		"NULL, 'о''значення', 'bytes', 42, TRUE, '2026-08-01 14:30:00'",
		rendered)
}

func TestQuoteSQL(t *testing.T) {
	assert.Equal(t, "'plain'", quoteSQL("plain"))
	assert.Equal(t, "'it''s'", quoteSQL("it's"))
}
