package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned by brokers after Close.
var ErrClosed = errors.New("messaging: broker closed")

// Broker defines the interface for message brokers.
//
// Publish encodes message as JSON and delivers it to every current subscriber
// of channel. Subscribe returns a stream of raw payloads that is closed once
// ctx is cancelled or the broker is closed; cancelling ctx is how a
// subscription is released.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Handle subscribes to channel and calls handler for every payload on its own
// goroutine. The returned stop function cancels the subscription and waits for
// the dispatch goroutine to exit; it is safe to call more than once but must
// not be called from inside handler.
func Handle(ctx context.Context, broker Broker, channel string, handler func([]byte)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	msgChan, err := broker.Subscribe(subCtx, channel)
	if err != nil {
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgChan {
			handler(msg)
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
