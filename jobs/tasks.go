package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-procure/meridian-procure/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifySend is the task type for delivering user notifications.
	TaskTypeNotifySend = "notify:send"
)

// NotifySendPayload carries one notification to the delivery worker.
type NotifySendPayload struct {
	UserID   int64  `json:"user_id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Link     string `json:"link,omitempty"`
}

// NewNotifySendTask constructs an Asynq task.
func NewNotifySendTask(payload NotifySendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifySend, data), nil
}

// HandleNotifySendTask processes TaskTypeNotifySend tasks. Delivery
// transport lives outside this service; the worker records the handoff.
func HandleNotifySendTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifySendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	slog.Info("notification dispatched",
		slog.Int64("user_id", payload.UserID),
		slog.String("title", payload.Title),
		slog.String("severity", payload.Severity))
	return nil
}

// AsynqNotifier queues notifications instead of delivering them inline.
type AsynqNotifier struct {
	client *Client
}

// NewAsynqNotifier wraps a jobs client as a notification sink.
func NewAsynqNotifier(client *Client) *AsynqNotifier {
	return &AsynqNotifier{client: client}
}

// Notify enqueues the notification for background delivery.
func (n *AsynqNotifier) Notify(ctx context.Context, note shared.Notification) error {
	_, err := n.client.EnqueueNotifySend(ctx, NotifySendPayload{
		UserID:   note.UserID,
		Title:    note.Title,
		Message:  note.Message,
		Severity: string(note.Severity),
		Link:     note.Link,
	})
	return err
}
