package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const laneBuffer = 64

// updateQueue fans updates out to one worker per chat, so events within a
// conversation are handled strictly in arrival order while different
// conversations stay concurrent.
type updateQueue struct {
	handle func(context.Context, tgbotapi.Update)
	logger *zap.Logger

	mu    sync.Mutex
	lanes map[int64]chan tgbotapi.Update
}

func newUpdateQueue(handle func(context.Context, tgbotapi.Update), logger *zap.Logger) *updateQueue {
	return &updateQueue{
		handle: handle,
		logger: logger,
		lanes:  make(map[int64]chan tgbotapi.Update),
	}
}

// dispatch routes an update onto its chat's lane, starting a worker for the
// lane on first use. Updates without a chat are handled off to the side.
func (q *updateQueue) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)
	if chatID == 0 {
		go q.handle(ctx, update)
		return
	}

	q.mu.Lock()
	lane, ok := q.lanes[chatID]
	if !ok {
		lane = make(chan tgbotapi.Update, laneBuffer)
		q.lanes[chatID] = lane
		go q.drain(ctx, lane)
	}
	q.mu.Unlock()

	select {
	case lane <- update:
	default:
		// A full lane means the conversation's handler is wedged; dropping
		// beats blocking the polling loop for every other chat.
		q.logger.Warn("Chat lane is full, dropping update",
			zap.Int64("chat_id", chatID))
	}
}

func (q *updateQueue) drain(ctx context.Context, lane chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-lane:
			q.handle(ctx, update)
		}
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}
