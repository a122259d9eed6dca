package mq

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rabbitmq/rabbitmq-stream-go-client/pkg/amqp"
	"github.com/rabbitmq/rabbitmq-stream-go-client/pkg/stream"

	"github.com/initia-labs/corerpc/config"
)

// Subscriber reads tip events from the super stream as part of a single
// active consumer group.
type Subscriber struct {
	env      *stream.Environment
	stream   string
	name     string
	consumer *stream.SuperStreamConsumer
	logger   *slog.Logger
}

func NewSubscriber(cfg config.RabbitMQConfig, name string, logger *slog.Logger) (*Subscriber, error) {
	env, err := newEnvironment(cfg)
	if err != nil {
		return nil, err
	}
	return &Subscriber{
		env:    env,
		stream: cfg.Stream,
		name:   name,
		logger: logger.With("component", "subscriber"),
	}, nil
}

// startPosition is a parsed "first", "last" or "height:<n>" start.
type startPosition struct {
	offset stream.OffsetSpecification
	// minHeight is -1 when no client side filtering is needed.
	minHeight int64
}

func parseStart(from string) (startPosition, error) {
	switch {
	case from == "first":
		return startPosition{offset: stream.OffsetSpecification{}.First(), minHeight: -1}, nil
	case from == "last":
		return startPosition{offset: stream.OffsetSpecification{}.Last(), minHeight: -1}, nil
	case strings.HasPrefix(from, "height:"):
		height, err := strconv.ParseInt(strings.TrimPrefix(from, "height:"), 10, 64)
		if err != nil || height < 0 {
			return startPosition{}, fmt.Errorf("invalid height value %q", from)
		}
		// the stream has no height index, replay from the start and filter
		return startPosition{offset: stream.OffsetSpecification{}.First(), minHeight: height}, nil
	}
	return startPosition{}, errors.New("unknown start position; expected first, last or height:<number>")
}

// keep reports whether m passes the height filter.
func (s startPosition) keep(m Message) bool {
	return s.minHeight < 0 || m.Height >= uint64(s.minHeight)
}

// Subscribe starts delivering events to handler. from is "first", "last"
// or "height:<number>".
func (s *Subscriber) Subscribe(from string, handler func(Message)) error {
	start, err := parseStart(from)
	if err != nil {
		return err
	}

	handleMessages := func(_ stream.ConsumerContext, msg *amqp.Message) {
		m, err := decodeMessage(msg.GetData())
		if err != nil {
			s.logger.Warn("dropping malformed tip event", slog.Any("error", err))
			return
		}
		if !start.keep(m) {
			return
		}
		handler(m)
	}

	sac := stream.NewSingleActiveConsumer(
		func(partition string, isActive bool) stream.OffsetSpecification {
			return start.offset
		},
	)
	consumer, err := s.env.NewSuperStreamConsumer(
		s.stream,
		handleMessages,
		stream.NewSuperStreamConsumerOptions().
			SetSingleActiveConsumer(sac.SetEnabled(true)).
			SetConsumerName(s.name).
			SetOffset(start.offset),
	)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	s.consumer = consumer
	s.logger.Info("subscribed", slog.String("stream", s.stream), slog.String("from", from))
	return nil
}

func (s *Subscriber) Close() error {
	var firstErr error
	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			firstErr = err
		}
	}
	if s.env != nil {
		if err := s.env.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
