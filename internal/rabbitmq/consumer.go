package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/hostplane/controlplane/internal/lib/sl"
)

// ConsumerMessage starts a bounded pool of goroutines consuming queueName,
// acking on a nil handler return and requeueing (Nack with requeue=true)
// otherwise. Returns once the consumer is registered; delivery handling
// continues in the background until ctx is done.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler func([]byte) error, log *slog.Logger) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(delivery amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(delivery.Body); err != nil {
						log.Error("handler failed, requeueing delivery", sl.Err(err), slog.String("queue", queueName))
						if nackErr := delivery.Nack(false, true); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr), slog.String("queue", queueName))
						}
						return
					}
					if ackErr := delivery.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr), slog.String("queue", queueName))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
