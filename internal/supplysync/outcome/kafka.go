package outcome

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/liquidfi/supplysync/internal/supplysync/model"
)

// Kafka publishes one message per dispatch outcome so abandoned and
// failed mutations stay visible outside the process (the reconciler
// itself never retries them). Keyed by dedup key so replays of the same
// logical event land in the same partition.
type Kafka struct {
	topic string
	sp    sarama.SyncProducer
}

func NewKafka(brokersCSV, topic string) (*Kafka, error) {
	if topic == "" {
		return nil, errors.New("outcome topic is empty")
	}
	brokers := splitBrokers(brokersCSV)
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers")
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 10
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Version = sarama.V2_1_0_0

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Kafka{topic: topic, sp: sp}, nil
}

func (k *Kafka) Close() error {
	if k.sp != nil {
		return k.sp.Close()
	}
	return nil
}

func (k *Kafka) Publish(ctx context.Context, o model.DispatchOutcome) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}

	// sync producer has no context hook; check before and after the send
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err = k.sp.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(o.Event.Key().String()),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

func splitBrokers(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
