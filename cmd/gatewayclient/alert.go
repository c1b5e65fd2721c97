package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/discordpkg/gatewayclient/rest"
)

// alertHook posts warnings and errors to a discord channel. Messages are posted by a
// background goroutine, so logging never waits on the REST API. When the backlog is full
// new alerts are dropped.
type alertHook struct {
	transport *rest.Transport
	channelID string
	timeout   time.Duration

	mu       sync.RWMutex
	closed   bool
	messages chan string
	done     chan struct{}
}

var _ logrus.Hook = &alertHook{}

func newAlertHook(transport *rest.Transport, channelID string, timeout time.Duration, backlog int) *alertHook {
	h := &alertHook{
		transport: transport,
		channelID: channelID,
		timeout:   timeout,
		messages:  make(chan string, backlog),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *alertHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
	}
}

func (h *alertHook) Fire(entry *logrus.Entry) error {
	content := fmt.Sprintf("[%s] %s", entry.Level.String(), entry.Message)
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		content = fmt.Sprintf("%s: %v", content, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}

	select {
	case h.messages <- content:
		return nil
	default:
		return fmt.Errorf("alert backlog is full, dropped %q", entry.Message)
	}
}

func (h *alertHook) run() {
	defer close(h.done)
	for content := range h.messages {
		if err := h.post(content); err != nil {
			// not through the logger, it would feed the hook again
			fmt.Fprintf(os.Stderr, "alert: %v\n", err)
		}
	}
}

func (h *alertHook) post(content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	_, err := h.transport.Do(ctx, http.MethodPost, "/channels/"+h.channelID+"/messages", &rest.Options{
		HTTPErrors: true,
		JSON:       map[string]string{"content": content},
	})
	if err != nil {
		return fmt.Errorf("unable to dispatch discord message. %w", err)
	}
	return nil
}

// Close stops accepting alerts and waits for the backlog to be posted.
func (h *alertHook) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.messages)
	}
	h.mu.Unlock()
	<-h.done
}
