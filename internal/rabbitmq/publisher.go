package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// WorkspaceStopJob is the payload published for every owner whose
// subscription left the active state via a terminal webhook transition.
type WorkspaceStopJob struct {
	OwnerID string `json:"owner_id"`
}

// PublishMessage marshals message as JSON and publishes it to exchange
// with routingkey, persisted so a worker restart does not lose it.
func PublishMessage(ch *amqp.Channel, exchange, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PublishWorkspaceStop fans out a container-stop job for ownerID onto
// WorkspaceStopQueue. Called outside the webhook transaction per §4.6 step
// 6; a publish failure is logged by the caller, never fails the webhook.
func PublishWorkspaceStop(ch *amqp.Channel, ownerID string) error {
	return PublishMessage(ch, workspaceEventsExchange, WorkspaceStopQueue.RoutingKey, WorkspaceStopJob{OwnerID: ownerID})
}

// Publisher adapts a channel to the narrow interface the subscription
// state machine depends on, so internal/services/subscription never
// imports streadway/amqp directly.
type Publisher struct {
	Channel *amqp.Channel
}

// PublishWorkspaceStop implements subscription.SideEffectPublisher.
func (p *Publisher) PublishWorkspaceStop(ownerID string) error {
	return PublishWorkspaceStop(p.Channel, ownerID)
}
