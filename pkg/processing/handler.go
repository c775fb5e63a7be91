package processing

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/censys/rssi-agg/pkg/export"
	"github.com/censys/rssi-agg/pkg/storage"
)

// Dead-letter reasons attached to republished messages.
const (
	ReasonParse        = "parse_error"
	ReasonExtract      = "extract_error"
	ReasonInsufficient = "insufficient_records"
)

// DLQPublisher publishes unusable scan messages to a dead-letter topic.
type DLQPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message, reason string) error
}

// PubSubDLQPublisher implements DLQPublisher using a Pub/Sub topic.
type PubSubDLQPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubDLQPublisher constructs a DLQ publisher for the given topic. If the
// topic is nil, publishes are treated as no-ops.
func NewPubSubDLQPublisher(topic *pubsub.Topic) *PubSubDLQPublisher {
	return &PubSubDLQPublisher{topic: topic}
}

// Publish sends the message to the DLQ topic. If topic is nil, it is a no-op.
func (p *PubSubDLQPublisher) Publish(ctx context.Context, msg *pubsub.Message, reason string) error {
	if p.topic == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	attrs := map[string]string{
		"reason":      reason,
		"orig_msg_id": msg.ID,
	}
	for k, v := range msg.Attributes {
		attrs["orig_"+k] = v
	}
	if msg.DeliveryAttempt != nil {
		attrs["delivery_attempt"] = strconv.Itoa(*msg.DeliveryAttempt)
	}
	_, err := p.topic.Publish(ctx, &pubsub.Message{
		Data:       msg.Data,
		Attributes: attrs,
	}).Get(ctx)
	return err
}

// NoopDLQPublisher is used when no DLQ topic is configured.
type NoopDLQPublisher struct{}

func (n *NoopDLQPublisher) Publish(ctx context.Context, msg *pubsub.Message, reason string) error {
	return nil
}

// HandleMessage runs the pipeline over one scan message and returns true if
// it should be acked (even when sent to DLQ) or false to Nack (for retriable
// errors). exportCount applies when the message does not carry its own.
func HandleMessage(ctx context.Context, sink storage.Sink, dlq DLQPublisher, msg *pubsub.Message, exportCount int) bool {
	if dlq == nil {
		dlq = &NoopDLQPublisher{}
	}
	scan, err := ParseScanMessage(msg.Data, msg.Attributes)
	if err != nil {
		log.Printf("pushing message to DLQ: %v", err)
		return deadLetter(ctx, dlq, msg, ReasonParse)
	}

	ranked, err := AnalyzeBlock(scan.Block)
	if err != nil {
		log.Printf("pushing message to DLQ: interface=%s: %v", scan.Interface, err)
		return deadLetter(ctx, dlq, msg, ReasonExtract)
	}

	if scan.ExportCount != 0 {
		exportCount = scan.ExportCount
	}
	toWrite := ResolveCount(exportCount, len(ranked))

	summary, err := Export(ctx, sink, ranked, toWrite, scan.Interface, scan.CapturedAt)
	switch {
	case errors.Is(err, export.ErrInsufficientRecords), errors.Is(err, export.ErrInvalidCount):
		log.Printf("pushing message to DLQ: interface=%s access_points=%d: %v", scan.Interface, len(ranked), err)
		return deadLetter(ctx, dlq, msg, ReasonInsufficient)
	case err != nil:
		log.Printf("save failed interface=%s: %v", scan.Interface, err)
		return false
	}

	log.Printf("summary saved interface=%s access_points=%d exported=%d", scan.Interface, len(ranked), len(summary.Records()))
	return true
}

func deadLetter(ctx context.Context, dlq DLQPublisher, msg *pubsub.Message, reason string) bool {
	if err := dlq.Publish(ctx, msg, reason); err != nil {
		log.Printf("error publishing to DLQ: %v", err)
		return false
	}
	return true
}
