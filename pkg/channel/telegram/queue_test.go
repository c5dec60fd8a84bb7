package telegram

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
)

func textUpdate(updateID int, chatID int64, text string) telego.Update {
	return telego.Update{
		UpdateID: updateID,
		Message: &telego.Message{
			Chat: telego.Chat{ID: chatID},
			From: &telego.User{ID: chatID},
			Text: text,
		},
	}
}

func TestChatQueueBusyChatDoesNotStarveOthers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	served := make(chan struct{})
	queue := newChatQueue(maxConcurrentUpdates, func(_ context.Context, update telego.Update) {
		if update.Message.Chat.ID == 1 {
			<-release
			return
		}
		close(served)
	})

	for i := range maxConcurrentUpdates + 2 {
		queue.push(ctx, textUpdate(i, 1, "стресс"))
	}
	queue.push(ctx, textUpdate(100, 2, "привет"))

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("second chat was not served while the first chat had a backlog")
	}

	close(release)
	queue.wait()
}

func TestChatQueueKeepsOrderWithinChat(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var seen []int
	queue := newChatQueue(maxConcurrentUpdates, func(_ context.Context, update telego.Update) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen = append(seen, update.UpdateID)
		mu.Unlock()
	})

	for i := range 20 {
		queue.push(ctx, textUpdate(i, 5, "мята"))
	}
	queue.wait()

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	if !slices.Equal(seen, want) {
		t.Fatalf("processing order = %v, want %v", seen, want)
	}
}

func TestChatQueueLimitsConcurrency(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	active, peak := 0, 0
	queue := newChatQueue(2, func(context.Context, telego.Update) {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	})

	for chat := range int64(6) {
		queue.push(ctx, textUpdate(int(chat), chat+1, "привет"))
	}
	queue.wait()

	if peak > 2 {
		t.Fatalf("peak concurrent updates = %d, want at most 2", peak)
	}
}

func TestChatQueueDropsBacklogOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	block := make(chan struct{})
	var mu sync.Mutex
	processed := 0
	queue := newChatQueue(1, func(context.Context, telego.Update) {
		mu.Lock()
		processed++
		mu.Unlock()
		<-block
	})

	queue.push(ctx, textUpdate(1, 1, "первый"))
	queue.push(ctx, textUpdate(2, 2, "второй"))

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(block)
	queue.wait()

	if processed != 1 {
		t.Fatalf("processed = %d, want 1 after cancel", processed)
	}
}

func TestUpdateChatKey(t *testing.T) {
	t.Parallel()

	if got := updateChatKey(textUpdate(1, 42, "x")); got != "42" {
		t.Fatalf("message key = %q, want 42", got)
	}

	callback := telego.Update{UpdateID: 2, CallbackQuery: &telego.CallbackQuery{
		ID:      "cb",
		Message: &telego.Message{Chat: telego.Chat{ID: 43}},
	}}
	if got := updateChatKey(callback); got != "43" {
		t.Fatalf("callback key = %q, want 43", got)
	}

	if got := updateChatKey(telego.Update{UpdateID: 3}); got != "update:3" {
		t.Fatalf("chatless key = %q, want update:3", got)
	}
}
