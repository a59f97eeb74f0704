package push

import (
	"context"
	"testing"
	"time"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()

	ch, cancel, err := b.Subscribe("notifications_42")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	if err := b.Publish(context.Background(), "notifications_42", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-ch:
		if string(msg) != "hello" {
			t.Errorf("expected hello, got %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestBroker_TopicIsolation(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()

	ch, cancel, _ := b.Subscribe("notifications_1")
	defer cancel()

	b.Publish(context.Background(), "notifications_2", []byte("other"))

	select {
	case msg := <-ch:
		t.Errorf("received message for another topic: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_CancelRemovesSubscriber(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()

	_, cancel, _ := b.Subscribe("notifications_1")
	if got := b.SubscriberCount("notifications_1"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	cancel()
	cancel() // idempotent

	if got := b.SubscriberCount("notifications_1"); got != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", got)
	}
}

func TestBroker_FullBufferDoesNotBlock(t *testing.T) {
	b := NewBroker(1)
	defer b.Close()

	_, cancel, _ := b.Subscribe("notifications_1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(context.Background(), "notifications_1", []byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}

func TestBroker_Closed(t *testing.T) {
	b := NewBroker(8)
	b.Close()

	if err := b.Publish(context.Background(), "t", []byte("x")); err != ErrBrokerClosed {
		t.Errorf("expected ErrBrokerClosed, got %v", err)
	}
	if _, _, err := b.Subscribe("t"); err != ErrBrokerClosed {
		t.Errorf("expected ErrBrokerClosed, got %v", err)
	}
}
