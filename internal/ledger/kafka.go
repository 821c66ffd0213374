package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/CarbonProof/Platform/internal/models"
)

// KafkaSubmitterConfig configures the Kafka-backed ledger submitter.
type KafkaSubmitterConfig struct {
	// Brokers is the list of Kafka broker addresses (host:port).
	Brokers []string

	// Topic receives ledger transactions.
	Topic string

	// MaxAttempts is how many times Submit retries on transient error.
	// Defaults to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt timeout. Defaults to 10s if zero.
	WriteTimeout time.Duration
}

// KafkaSubmitter forwards ledger transactions to a Kafka topic consumed by
// the real settlement bridge. Keyed by agent id so one agent's entries stay
// ordered within a partition.
type KafkaSubmitter struct {
	writer      *kafka.Writer
	maxAttempts int
}

// NewKafkaSubmitter constructs a KafkaSubmitter.
func NewKafkaSubmitter(cfg KafkaSubmitterConfig) (*KafkaSubmitter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	})

	return &KafkaSubmitter{writer: w, maxAttempts: cfg.MaxAttempts}, nil
}

// Submit produces the transaction JSON with bounded retries and exponential
// backoff.
func (s *KafkaSubmitter) Submit(ctx context.Context, tx models.LedgerTransaction) error {
	value, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(tx.AgentID),
		Value: value,
		Time:  tx.Timestamp,
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.writer.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("produce failed after %d attempts: %w", s.maxAttempts, lastErr)
}

// Close shuts down the underlying writer.
func (s *KafkaSubmitter) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
