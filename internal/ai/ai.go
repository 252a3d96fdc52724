package ai

// AI SHOPPING CONSULTANT

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vidoma-bot/internal/storage"
)

const (
	model       = openai.GPT4
	maxTokens   = 800
	temperature = 0.7

	// Each customer gets a couple of questions per minute; the consultant is
	// a shop assistant, not a chat playground.
	questionsPerMinute = 2
	questionBurst      = 3

	maxSuggestions = 3
)

const fallbackAnswer = "Вибачте, консультант зараз недоступний. " +
	"Спробуйте пізніше або перегляньте каталог 🛍"

const rateLimitAnswer = "Забагато запитань поспіль 🙂 Зачекайте хвилинку і спробуйте ще раз."

// Catalog supplies the product list the consultant reasons about.
type Catalog interface {
	GetActiveProducts(ctx context.Context) ([]storage.Product, error)
}

// Consultant answers free-form shopping questions grounded in the live
// catalog and points the customer at concrete products.
type Consultant struct {
	client  *openai.Client
	catalog Catalog
	logger  *zap.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

func New(apiKey string, catalog Catalog, logger *zap.Logger) *Consultant {
	return &Consultant{
		client:   openai.NewClient(apiKey),
		catalog:  catalog,
		logger:   logger,
		limiters: make(map[int64]*rate.Limiter),
	}
}

// Answer holds the consultant's reply plus the catalog products it mentioned.
type Answer struct {
	Text     string
	Products []storage.Product
}

// Ask answers one customer question. Model failures degrade to a polite
// fallback rather than an error; the bot must keep talking.
func (c *Consultant) Ask(ctx context.Context, userID int64, question string) Answer {
	if !c.limiter(userID).Allow() {
		return Answer{Text: rateLimitAnswer}
	}

	products, err := c.catalog.GetActiveProducts(ctx)
	if err != nil {
		c.logger.Error("Failed to load catalog for consultant",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return Answer{Text: fallbackAnswer}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(products)},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		c.logger.Error("Chat completion failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return Answer{Text: fallbackAnswer}
	}
	if len(resp.Choices) == 0 {
		return Answer{Text: fallbackAnswer}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	return Answer{
		Text:     text,
		Products: MentionedProducts(text, products),
	}
}

func (c *Consultant) limiter(userID int64) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(questionsPerMinute)/60, questionBurst)
		c.limiters[userID] = limiter
	}
	return limiter
}

// systemPrompt renders the catalog into the consultant's instructions.
func systemPrompt(products []storage.Product) string {
	var b strings.Builder
	b.WriteString("Ти - консультант українського магазину домашнього одягу Vidoma. ")
	b.WriteString("Відповідай українською, коротко і доброзичливо. ")
	b.WriteString("Рекомендуй тільки товари з каталогу нижче, називаючи їх точними назвами. ")
	b.WriteString("Якщо питання не про одяг, ввічливо поверни розмову до магазину.\n\n")
	b.WriteString("Каталог:\n")
	for _, p := range products {
		b.WriteString(fmt.Sprintf("- %s", p.Name))
		if p.CategoryName.Valid {
			b.WriteString(fmt.Sprintf(" (%s)", p.CategoryName.String))
		}
		b.WriteString(fmt.Sprintf(", %g грн", p.EffectivePrice()))
		b.WriteString("\n")
	}
	return b.String()
}

// MentionedProducts scans the reply for exact catalog names, preserving
// catalog order and capping the suggestion list.
func MentionedProducts(answer string, products []storage.Product) []storage.Product {
	lower := strings.ToLower(answer)

	var mentioned []storage.Product
	for _, p := range products {
		if strings.Contains(lower, strings.ToLower(p.Name)) {
			mentioned = append(mentioned, p)
			if len(mentioned) == maxSuggestions {
				break
			}
		}
	}
	return mentioned
}
