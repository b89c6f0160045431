// Package rabbitmq — подключение к RabbitMQ, объявление топологии бота,
// чтение входящих событий и публикация исходящих сообщений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// QueueConfig — очередь, привязанная к exchange исходящих сообщений.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Topology описывает очереди и exchange бота.
type Topology struct {
	UpdatesQueue     string
	OutboundExchange string
	OutboundQueues   []QueueConfig
	Prefetch         int
}

// RoutingKeyMessage ключ маршрутизации исходящих сообщений пользователям.
const RoutingKeyMessage = "message"

// GetOutboundQueues возвращает очереди для транспорта, отправляющего сообщения.
func GetOutboundQueues(exchange string) []QueueConfig {
	return []QueueConfig{
		{QueueName: exchange + ".messages", RoutingKey: RoutingKeyMessage},
	}
}

// Connect подключается к брокеру, повторяя попытки retries раз.
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

// SetupChannel открывает канал и объявляет очередь входящих событий,
// exchange исходящих сообщений и привязанные к нему очереди.
func SetupChannel(conn *amqp.Connection, t Topology) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if t.Prefetch > 0 {
		if err := ch.Qos(t.Prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
		}
	}

	if t.UpdatesQueue != "" {
		if _, err := ch.QueueDeclare(t.UpdatesQueue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, t.UpdatesQueue, err)
		}
	}

	if t.OutboundExchange == "" {
		return ch, nil
	}
	err = ch.ExchangeDeclare(
		t.OutboundExchange,
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

	for _, q := range t.OutboundQueues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		err = ch.QueueBind(q.QueueName, q.RoutingKey, t.OutboundExchange, false, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
