package dispatch

import (
	"context"
)

// Handler 处理来自队列的工作流 ID。
type Handler func(ctx context.Context, workflowID string) error

// Producer 负责投递运行请求。
type Producer interface {
	Publish(ctx context.Context, workflowID string) error
	Close() error
}

// Consumer 负责消费运行请求。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}

var (
	_ Queue = (*MemoryQueue)(nil)
	_ Queue = (*RedisQueue)(nil)
	_ Queue = (*RabbitMQQueue)(nil)
)
