package stockfeed

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("biz-1")
	defer cancel()

	h.Publish(StockEvent{BusinessID: "biz-1", ProductID: "p-1", Delta: -3, Stock: 7, At: time.Now()})

	select {
	case ev := <-ch:
		if ev.ProductID != "p-1" || ev.Stock != 7 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event")
	}
}

func TestBusinessIsolation(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("biz-1")
	defer cancel()

	h.Publish(StockEvent{BusinessID: "biz-2", ProductID: "p-1", Stock: 1})

	select {
	case ev := <-ch:
		t.Fatalf("biz-1 must not see biz-2 events, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("biz-1")
	if h.SubscriberCount("biz-1") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	if h.SubscriberCount("biz-1") != 0 {
		t.Fatalf("expected subscriber removed")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("biz-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Overflow the buffer; Publish must not block.
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Publish(StockEvent{BusinessID: "biz-1", ProductID: "p-1", Stock: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on slow subscriber")
	}
}
