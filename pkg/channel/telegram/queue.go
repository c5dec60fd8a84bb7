package telegram

import (
	"context"
	"strconv"
	"sync"

	"github.com/mymmrac/telego"
)

// chatQueue keeps one FIFO backlog per chat. Each backlog is drained by a
// single goroutine that holds a global slot only while it processes an
// update, so a busy chat never starves the others.
type chatQueue struct {
	slots   chan struct{}
	process func(context.Context, telego.Update)

	mu      sync.Mutex
	pending map[string][]telego.Update
	wg      sync.WaitGroup
}

func newChatQueue(limit int, process func(context.Context, telego.Update)) *chatQueue {
	return &chatQueue{
		slots:   make(chan struct{}, max(1, limit)),
		process: process,
		pending: make(map[string][]telego.Update),
	}
}

// push appends update to its chat's backlog and starts a drainer when the
// chat has none. It never blocks on handler work.
func (q *chatQueue) push(ctx context.Context, update telego.Update) {
	key := updateChatKey(update)

	q.mu.Lock()
	backlog, draining := q.pending[key]
	q.pending[key] = append(backlog, update)
	q.mu.Unlock()

	if draining {
		return
	}

	q.wg.Add(1)
	go q.drain(ctx, key)
}

func (q *chatQueue) drain(ctx context.Context, key string) {
	defer q.wg.Done()

	for {
		update, ok := q.next(key)
		if !ok {
			return
		}

		select {
		case q.slots <- struct{}{}:
		case <-ctx.Done():
			q.drop(key)
			return
		}
		if ctx.Err() != nil {
			<-q.slots
			q.drop(key)
			return
		}
		q.process(ctx, update)
		<-q.slots
	}
}

// next pops the oldest update of key, removing the backlog once it is empty.
func (q *chatQueue) next(key string) (telego.Update, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	backlog := q.pending[key]
	if len(backlog) == 0 {
		delete(q.pending, key)
		return telego.Update{}, false
	}

	q.pending[key] = backlog[1:]
	return backlog[0], true
}

func (q *chatQueue) drop(key string) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

// wait blocks until every drainer has returned.
func (q *chatQueue) wait() {
	q.wg.Wait()
}

// updateChatKey groups updates by chat. Updates without a chat get a key of
// their own.
func updateChatKey(update telego.Update) string {
	switch {
	case update.Message != nil:
		return strconv.FormatInt(update.Message.Chat.ID, 10)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return strconv.FormatInt(update.CallbackQuery.Message.GetChat().ID, 10)
	default:
		return "update:" + strconv.Itoa(update.UpdateID)
	}
}
