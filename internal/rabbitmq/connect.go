// Package rabbitmq carries the post-commit side-effect fan-out queue: the
// subscription state machine publishes a container-stop job after a
// terminal transition commits, and cmd/sidefx-worker consumes it.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// workspaceEventsExchange is the direct exchange every side-effect queue
// binds to.
const workspaceEventsExchange = "workspace-events"

// QueueConfig names a queue and the routing key it binds to on
// workspaceEventsExchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// WorkspaceStopQueue is the queue cmd/sidefx-worker consumes: one job per
// owner whose subscription has left the active state.
var WorkspaceStopQueue = QueueConfig{QueueName: "workspace.stop", RoutingKey: "workspace.stop"}

// Connect dials connection, making up to retries attempts in total and
// sleeping delay after each failed one.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel opens a channel on conn, declares workspaceEventsExchange
// and every queue in queues, and binds each to its routing key.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		workspaceEventsExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, workspaceEventsExchange, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
