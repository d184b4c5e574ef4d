// Package consumers contains Kafka consumers for background processing tasks.
package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/logger"
)

const retryDelay = time.Second

// messageReader is the part of kafka.Reader used by the consumer.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// LocalEvicter drops a firm's subscription from the in-process cache level.
type LocalEvicter interface {
	EvictLocal(firmID uuid.UUID)
}

// SubscriptionConsumer follows the audit topic and evicts this instance's
// in-process subscription entry whenever another instance changes a firm's
// plan or status. The shared Redis level is already invalidated by the writer.
//
// Every instance must see every event, so the reader joins no consumer group
// and starts from the newest offset.
type SubscriptionConsumer struct {
	reader  messageReader
	evicter LocalEvicter
	logger  logger.Logger
}

// NewSubscriptionConsumer creates a consumer reading cfg.AuditTopic.
func NewSubscriptionConsumer(cfg *config.KafkaConfig, evicter LocalEvicter, log logger.Logger) *SubscriptionConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.AuditTopic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     time.Second,
	})
	return newSubscriptionConsumer(reader, evicter, log)
}

func newSubscriptionConsumer(r messageReader, evicter LocalEvicter, log logger.Logger) *SubscriptionConsumer {
	return &SubscriptionConsumer{
		reader:  r,
		evicter: evicter,
		logger:  log.WithComponent("SubscriptionConsumer"),
	}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (c *SubscriptionConsumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "starting subscription cache consumer")
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Error(context.Background(), "failed to close kafka reader", err)
		}
	}()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info(context.Background(), "stopping subscription cache consumer")
				return nil
			}
			c.logger.Error(ctx, "failed to read message from kafka", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

// handle never fails: a message it cannot use is logged and skipped.
func (c *SubscriptionConsumer) handle(ctx context.Context, msg kafka.Message) {
	if t, ok := header(msg, "event_type"); ok && !affectsSubscription(constants.AuditEventType(t)) {
		return
	}

	var event models.AuditEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn(ctx, "skipping undecodable audit event", logger.Err(err), logger.Int64("offset", msg.Offset))
		return
	}
	if !affectsSubscription(event.Type) || event.FirmID == nil {
		return
	}

	c.evicter.EvictLocal(*event.FirmID)
	c.logger.Debug(ctx, "evicted local subscription entry",
		logger.String("firm_id", event.FirmID.String()),
		logger.String("event_type", string(event.Type)))
}

func affectsSubscription(t constants.AuditEventType) bool {
	return t == constants.AuditPlanChanged || t == constants.AuditFirmStatusChanged
}

func header(msg kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

//Personal.AI order the ending
