package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "takedown/pkg/domain-errors"
)

// KafkaDispatcher publishes notifications to a Kafka topic. Records are keyed
// by case ID so all notifications for one case land on the same partition and
// preserve order.
type KafkaDispatcher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaDispatcher(client *kgo.Client, topic string, logger *slog.Logger) *KafkaDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaDispatcher{client: client, topic: topic, logger: logger}
}

func (d *KafkaDispatcher) Trigger(ctx context.Context, msg Message) (uuid.UUID, error) {
	msg.ID = uuid.New()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode notification")
	}

	record := &kgo.Record{
		Topic: d.topic,
		Key:   []byte(msg.CaseID.String()),
		Value: payload,
	}
	if err := d.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "publish notification")
	}

	d.logger.DebugContext(ctx, "notification published",
		"delivery_id", msg.ID,
		"case_id", msg.CaseID,
		"template_key", msg.TemplateKey,
		"severity", msg.Severity,
	)
	return msg.ID, nil
}
