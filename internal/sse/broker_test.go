package sse

import (
	"strings"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func recvEvent(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return ""
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ch := b.Subscribe()
	waitFor(t, time.Second, func() bool { return b.ClientCount() == 1 })

	b.Unsubscribe(ch)
	waitFor(t, time.Second, func() bool { return b.ClientCount() == 0 })
}

func TestPublishReachesAllClients(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	waitFor(t, time.Second, func() bool { return b.ClientCount() == 2 })

	b.Publish(Event{Type: "ping", Data: map[string]string{"x": "1"}})

	for _, ch := range []chan []byte{ch1, ch2} {
		msg := recvEvent(t, ch)
		if !strings.Contains(msg, "event: ping") {
			t.Errorf("msg = %q", msg)
		}
	}
}

func TestManifestEventTypes(t *testing.T) {
	b := NewBroker(time.Hour) // throttle summary out of the way after the first
	defer b.Close()

	ch := b.Subscribe()
	waitFor(t, time.Second, func() bool { return b.ClientCount() == 1 })

	b.PublishManifestEvent("validated", "package.json")

	msg := recvEvent(t, ch)
	if !strings.Contains(msg, "event: manifest.validated") || !strings.Contains(msg, `"package.json"`) {
		t.Errorf("msg = %q", msg)
	}
	// First manifest event also emits a summary update.
	msg = recvEvent(t, ch)
	if !strings.Contains(msg, "event: summary.updated") {
		t.Errorf("msg = %q", msg)
	}

	b.PublishManifestEvent("deleted", "packages/web/package.json")
	msg = recvEvent(t, ch)
	if !strings.Contains(msg, "event: manifest.deleted") {
		t.Errorf("msg = %q", msg)
	}
}

func TestSummaryThrottled(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	waitFor(t, time.Second, func() bool { return b.ClientCount() == 1 })

	for i := 0; i < 5; i++ {
		b.PublishManifestEvent("validated", "package.json")
	}

	summaries := 0
	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatal("channel closed")
			}
			if strings.Contains(string(msg), "summary.updated") {
				summaries++
			}
			continue
		case <-deadline:
		}
		break
	}
	if summaries != 1 {
		t.Errorf("summaries = %d, want exactly 1 within throttle window", summaries)
	}
}

func TestCloseIdempotent(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()
	waitFor(t, time.Second, func() bool { return b.ClientCount() == 1 })

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("client channel should be closed")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("ClientCount after close = %d", n)
	}
}
