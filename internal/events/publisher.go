// Package events mirrors live transcript events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/prepmate/interview-client/internal/config"
	"github.com/prepmate/interview-client/internal/observability"
)

// Transcript event types
const (
	TypePartial = "partial"
	TypeFinal   = "final"
)

// TranscriptEvent is one reconciled transcript update
type TranscriptEvent struct {
	InterviewID   string    `json:"interviewId"`
	CorrelationID string    `json:"correlationId"`
	QuestionIndex int       `json:"questionIndex"`
	Question      string    `json:"question"`
	Type          string    `json:"type"`
	Text          string    `json:"text"`
	Display       string    `json:"display"` // answer text as shown after the update
	Timestamp     time.Time `json:"timestamp"`
}

// Config holds Kafka publisher configuration
type Config struct {
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
	Enabled      bool
}

// ConfigFrom maps client configuration to publisher configuration
func ConfigFrom(cfg *config.Config, principal string) *Config {
	return &Config{
		Brokers:      cfg.KafkaBrokers,
		TopicPartial: cfg.KafkaTopicPartial,
		TopicFinal:   cfg.KafkaTopicFinal,
		Principal:    principal,
		Enabled:      cfg.KafkaEnabled,
	}
}

// Publisher writes partial and final transcripts to separate topics.
// When disabled it only logs.
type Publisher struct {
	writerPartial *kafka.Writer
	writerFinal   *kafka.Writer
	principal     string
	topicPartial  string
	topicFinal    string
	enabled       bool
	logger        zerolog.Logger
}

// New creates a publisher; a nil or disabled config yields log-only mode
func New(cfg *Config) *Publisher {
	logger := observability.WithComponent("events")

	if cfg == nil {
		logger.Debug().Msg("Transcript mirror disabled (nil config), using log-only mode")
		return &Publisher{logger: logger}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Debug().Msg("Transcript mirror disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			topicPartial: cfg.TopicPartial,
			topicFinal:   cfg.TopicFinal,
			logger:       logger,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	// Async writers: the interview loop never waits on the broker
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			Transport:    transport,
			Completion: func(messages []kafka.Message, err error) {
				observability.RecordEventPublish(topic, err)
				if err != nil {
					logger.Warn().Err(err).Str("topic", topic).Int("messages", len(messages)).Msg("Failed to write transcript events")
				}
			},
		}
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic_partial", cfg.TopicPartial).
		Str("topic_final", cfg.TopicFinal).
		Msg("Transcript mirror initialized")

	return &Publisher{
		writerPartial: newWriter(cfg.TopicPartial),
		writerFinal:   newWriter(cfg.TopicFinal),
		principal:     cfg.Principal,
		topicPartial:  cfg.TopicPartial,
		topicFinal:    cfg.TopicFinal,
		enabled:       true,
		logger:        logger,
	}
}

// Enabled reports whether events reach Kafka
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishTranscript routes the event to the topic for its type, keyed by interview
func (p *Publisher) PublishTranscript(ctx context.Context, event TranscriptEvent) error {
	if event.Type == TypeFinal {
		return p.publish(ctx, p.writerFinal, p.topicFinal, event.InterviewID, event)
	}
	return p.publish(ctx, p.writerPartial, p.topicPartial, event.InterviewID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, key string, event TranscriptEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	p.logger.Debug().
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing transcript event")

	if !p.enabled || writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.Type)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Str("key", key).Msg("Failed to queue transcript event")
		observability.RecordEventPublish(topic, err)
		return err
	}
	return nil
}

// Close flushes and closes both writers
func (p *Publisher) Close() error {
	var err error
	if p.writerPartial != nil {
		if e := p.writerPartial.Close(); e != nil {
			p.logger.Error().Err(e).Msg("Error closing partial writer")
			err = e
		}
	}
	if p.writerFinal != nil {
		if e := p.writerFinal.Close(); e != nil {
			p.logger.Error().Err(e).Msg("Error closing final writer")
			err = e
		}
	}
	return err
}
