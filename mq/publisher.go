package mq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rabbitmq/rabbitmq-stream-go-client/pkg/amqp"
	"github.com/rabbitmq/rabbitmq-stream-go-client/pkg/message"
	"github.com/rabbitmq/rabbitmq-stream-go-client/pkg/stream"

	"github.com/initia-labs/corerpc/config"
)

// Publisher sends tip events to a RabbitMQ super stream. The producer is
// created lazily on the first Publish.
type Publisher struct {
	env        *stream.Environment
	stream     string
	partitions int

	mu       sync.Mutex
	producer *stream.SuperStreamProducer
}

func newEnvironment(cfg config.RabbitMQConfig) (*stream.Environment, error) {
	env, err := stream.NewEnvironment(stream.NewEnvironmentOptions().
		SetHost(cfg.Host).
		SetPort(cfg.Port).
		SetVHost(cfg.VHost).
		SetUser(cfg.User).
		SetPassword(cfg.Password))
	if err != nil {
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}
	return env, nil
}

// NewPublisher connects to the broker described by cfg.
func NewPublisher(cfg config.RabbitMQConfig) (*Publisher, error) {
	env, err := newEnvironment(cfg)
	if err != nil {
		return nil, err
	}
	partitions := cfg.Partitions
	if partitions < 1 {
		partitions = 1
	}
	return &Publisher{env: env, stream: cfg.Stream, partitions: partitions}, nil
}

// DeclareStream creates the super stream if it does not exist yet.
func (p *Publisher) DeclareStream() error {
	err := p.env.DeclareSuperStream(p.stream,
		stream.NewPartitionsOptions(p.partitions).
			SetMaxLengthBytes(stream.ByteCapacity{}.GB(2)))
	if err != nil && !errors.Is(err, stream.StreamAlreadyExists) {
		return err
	}
	return nil
}

// DeleteStream removes the super stream. Used to reset test brokers.
func (p *Publisher) DeleteStream() error {
	if err := p.env.DeleteSuperStream(p.stream); err != nil {
		return fmt.Errorf("failed to delete stream: %w", err)
	}
	return nil
}

func (p *Publisher) getProducer() (*stream.SuperStreamProducer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.producer != nil {
		return p.producer, nil
	}

	if err := p.DeclareStream(); err != nil {
		return nil, fmt.Errorf("failed to declare stream: %w", err)
	}
	prod, err := p.env.NewSuperStreamProducer(p.stream,
		stream.NewSuperStreamProducerOptions(
			stream.NewHashRoutingStrategy(func(msg message.StreamMessage) string {
				return msg.GetMessageProperties().MessageID.(string)
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	p.producer = prod
	return prod, nil
}

// Publish sends one tip event. Messages are spread over partitions by a
// random message id.
func (p *Publisher) Publish(tip Message) error {
	prod, err := p.getProducer()
	if err != nil {
		return err
	}

	data, err := encodeMessage(tip)
	if err != nil {
		return err
	}
	msg := amqp.NewMessage(data)
	msg.Properties = &amqp.MessageProperties{
		MessageID: uuid.New().String(),
	}
	return prod.Send(msg)
}

// Close shuts down the producer and the environment, returning the first
// error encountered.
func (p *Publisher) Close() error {
	var firstErr error
	p.mu.Lock()
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			firstErr = err
		}
		p.producer = nil
	}
	p.mu.Unlock()
	if p.env != nil {
		if err := p.env.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
