package kafka

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDisabledProducerIsNoop(t *testing.T) {
	p := NewProducer(nil, "events", 0, nil)
	if p.Enabled() {
		t.Fatal("producer without brokers should be disabled")
	}
	p.Produce(context.Background(), "k", []byte("v"))
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if p.writeTimeout != defaultWriteTimeout {
		t.Fatalf("expected default timeout, got %v", p.writeTimeout)
	}
}

// silentBroker accepts connections and never answers, like a stalled broker.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().String()
}

func TestProduceIsBoundedByWriteTimeout(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := NewProducer([]string{silentBroker(t)}, "events", 100*time.Millisecond, zap.New(core))

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Produce(context.Background(), "ticket-1", []byte(`{}`))
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Produce blocked past its write timeout")
	}
	if logs.FilterMessage("kafka write failed").Len() != 1 {
		t.Fatalf("expected the failed write to be logged, got %d entries", logs.Len())
	}
}
