package broker

import (
	"context"

	"teamflow/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, event models.TaskEvent) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, event models.TaskEvent) error
