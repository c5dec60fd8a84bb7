package gateway

import (
	"context"
	"sync"

	"aromabot/pkg/bus"
	"aromabot/pkg/channel"
	"aromabot/pkg/router"
)

// chatLanes serializes handling per chat so a user's button presses apply in
// the order they arrive, while different chats run concurrently.
type chatLanes struct {
	mu    sync.Mutex
	lanes map[string]*chatLane
}

type chatLane struct {
	mu   sync.Mutex
	refs int
}

func newChatLanes() *chatLanes {
	return &chatLanes{lanes: make(map[string]*chatLane)}
}

// wrap returns handler guarded by the lane of the event's chat.
func (l *chatLanes) wrap(handler channel.Handler) channel.Handler {
	return func(ctx context.Context, event router.InboundEvent) (bus.OutboundMessage, error) {
		key := chatKey(event)
		if key == "" {
			return handler(ctx, event)
		}

		lane := l.acquire(key)
		defer l.release(key, lane)

		return handler(ctx, event)
	}
}

func (l *chatLanes) acquire(key string) *chatLane {
	l.mu.Lock()
	lane, ok := l.lanes[key]
	if !ok {
		lane = &chatLane{}
		l.lanes[key] = lane
	}
	lane.refs++
	l.mu.Unlock()

	lane.mu.Lock()
	return lane
}

func (l *chatLanes) release(key string, lane *chatLane) {
	lane.mu.Unlock()

	l.mu.Lock()
	lane.refs--
	if lane.refs == 0 {
		delete(l.lanes, key)
	}
	l.mu.Unlock()
}

// size reports how many chats currently hold or wait for a lane.
func (l *chatLanes) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

func chatKey(event router.InboundEvent) string {
	switch e := event.(type) {
	case router.TextMessage:
		return e.ChatID
	case router.CallbackEvent:
		return e.ChatID
	default:
		return ""
	}
}
