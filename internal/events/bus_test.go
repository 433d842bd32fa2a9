package events

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventModelResponse)

	bus.Publish(NewTypedEvent(SourceModel, ModelResponsePayload{Content: "hello"}))
	bus.Publish(NewTypedEvent(SourceRouter, CommandFeedbackPayload{Message: "Opening Safari..."}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventModelResponse {
		t.Errorf("expected model.response, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewTypedEvent(SourceModel, ModelResponsePayload{Content: "hello"}))
	bus.Publish(NewTypedEvent(SourceModel, ModelErrorPayload{Error: "timeout"}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestBusDeliveryOrder(t *testing.T) {
	bus := NewBus(256)
	defer bus.Close()

	var mu sync.Mutex
	var got []string

	bus.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e.Payload["content"].(string))
		mu.Unlock()
	}, EventModelResponse)

	for i := 0; i < 20; i++ {
		bus.Publish(NewTypedEvent(SourceModel, ModelResponsePayload{
			Content: fmt.Sprintf("reply-%d", i),
		}))
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(got) != 20 {
		t.Fatalf("expected 20 events, got %d", len(got))
	}
	for i, content := range got {
		if want := fmt.Sprintf("reply-%d", i); content != want {
			t.Fatalf("event %d delivered out of order: got %s, want %s", i, content, want)
		}
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewTypedEvent(SourceModel, ModelResponsePayload{Content: fmt.Sprint(i)}))
	}

	events := rb.Get(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventModelResponse)
	defer unsub()

	bus.Publish(NewTypedEvent(SourceModel, ModelResponsePayload{Content: "hello"}))

	select {
	case e := <-ch:
		if e.Type != EventModelResponse {
			t.Errorf("expected model.response, got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus(8)
	bus.Close()

	// Must not panic.
	bus.Publish(NewTypedEvent(SourceModel, ModelResponsePayload{Content: "late"}))
}

func TestPublishRacingCloseDoesNotPanic(t *testing.T) {
	bus := NewBus(8)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				bus.Publish(NewTypedEvent(SourceModel, ModelResponsePayload{
					Content: fmt.Sprint(i),
				}))
			}
		}()
	}

	time.Sleep(time.Millisecond)
	bus.Close()
	wg.Wait()
}
