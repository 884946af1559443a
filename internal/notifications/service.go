package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stillcut/internal/config"
)

const userAgent = "stillcut/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventTrimCompleted Event = "trim_completed"
	EventTrimFailed    Event = "trim_failed"
	EventTest          Event = "test"
)

// Payload carries the event details. Known keys: input, output, mode, kept,
// removed, spans, error, stage.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed notifier when a topic is configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
		onFailure: cfg.Notifications.OnFailure,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
	onFailure bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventTrimCompleted:
		if !n.onSuccess {
			return message{}, false
		}
		body := fmt.Sprintf("Trimmed %s: kept %s, removed %s",
			baseName(payload.text("input")), payload.text("kept"), payload.text("removed"))
		if spans := payload.text("spans"); spans != "" {
			body += fmt.Sprintf(" (%s spans)", spans)
		}
		if output := payload.text("output"); output != "" {
			body += "\nFile: " + output
		}
		tags := []string{"stillcut", "trim", "completed"}
		if mode := payload.text("mode"); mode != "" {
			tags = append(tags, mode)
		}
		return message{title: "stillcut - Trim Complete", body: body, tags: tags}, true
	case EventTrimFailed:
		if !n.onFailure {
			return message{}, false
		}
		var b strings.Builder
		b.WriteString("Trim failed")
		if input := payload.text("input"); input != "" {
			b.WriteString(" for ")
			b.WriteString(baseName(input))
		}
		if stage := payload.text("stage"); stage != "" {
			b.WriteString(" during ")
			b.WriteString(stage)
		}
		b.WriteString(": ")
		if reason := payload.text("error"); reason != "" {
			b.WriteString(reason)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "stillcut - Trim Failed",
			body:     b.String(),
			tags:     []string{"stillcut", "trim", "error"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "stillcut - Test",
			body:     "Notification system test",
			tags:     []string{"stillcut", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
