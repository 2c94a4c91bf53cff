// Package file is a messaging.Broker backed by one file per channel inside a
// shared directory. Publishing atomically replaces the channel file;
// subscribers watch the directory with fsnotify and receive the new contents.
// Processes on the same host that point at the same directory see each
// other's messages, which makes the directory behave like browser local
// storage shared between tabs.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-registry/pkg/messaging"
)

const bufferSize = 64

type subscriber struct {
	channel string
	ch      chan []byte
	// last is the payload this subscriber has already seen. Rewrites with
	// identical contents are not delivered twice.
	last []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Broker shares one fsnotify watcher between all of its subscriptions. The
// watcher starts with the first subscription and stops when the last one
// ends.
type Broker struct {
	dir    string
	logger *zerolog.Logger

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	watcher *fsnotify.Watcher
	subs    map[string]map[*subscriber]struct{}
	count   int
}

// NewBroker creates dir if needed and returns a broker rooted there.
func NewBroker(dir string, logger *zerolog.Logger) (*Broker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create signal directory: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broker{
		dir:    filepath.Clean(dir),
		logger: logger,
		done:   make(chan struct{}),
		subs:   make(map[string]map[*subscriber]struct{}),
	}, nil
}

func (b *Broker) path(channel string) string {
	return filepath.Join(b.dir, channel)
}

func (b *Broker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return messaging.ErrClosed
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, "."+channel+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path(channel)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, messaging.ErrClosed
	}
	if b.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := w.Add(b.dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", b.dir, err)
		}
		b.watcher = w
		go b.watch(w)
	}

	sub := &subscriber{channel: channel, ch: make(chan []byte, bufferSize)}
	// Whatever is already in the file was published before we subscribed.
	sub.last, _ = os.ReadFile(b.path(channel))
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscriber]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.count++

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.remove(sub)
	}()

	return sub.ch, nil
}

func (b *Broker) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub.close()
	subs, ok := b.subs[sub.channel]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subs, sub.channel)
	}
	b.count--
	if b.count == 0 && b.watcher != nil {
		_ = b.watcher.Close()
		b.watcher = nil
	}
}

func (b *Broker) watch(w *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Clean(event.Name)
			if filepath.Dir(name) != b.dir {
				continue
			}
			b.dispatch(filepath.Base(name))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			b.logger.Warn().Err(err).Str("dir", b.dir).Msg("error watching signal directory")
		}
	}
}

func (b *Broker) dispatch(channel string) {
	b.mu.Lock()
	listening := len(b.subs[channel]) > 0
	b.mu.Unlock()
	if !listening {
		return
	}

	payload, err := os.ReadFile(b.path(channel))
	if err != nil || len(payload) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[channel] {
		if bytes.Equal(payload, sub.last) {
			continue
		}
		sub.last = payload
		select {
		case sub.ch <- payload:
		default:
			b.logger.Warn().Str("channel", channel).Msg("dropping signal for slow subscriber")
		}
	}
}

// Subscribers reports how many live subscriptions channel has.
func (b *Broker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

// Close stops every subscription. The channel files are left in place so
// later processes can still start from them.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	for _, subs := range b.subs {
		for sub := range subs {
			sub.close()
		}
	}
	b.subs = make(map[string]map[*subscriber]struct{})
	b.count = 0
	if b.watcher != nil {
		_ = b.watcher.Close()
		b.watcher = nil
	}
	return nil
}
