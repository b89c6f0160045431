package rabbitmq

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
)

// Handler обрабатывает тело сообщения. Ошибка возвращает сообщение в очередь.
type Handler func(ctx context.Context, body []byte) error

// KeyFunc возвращает ключ упорядочивания сообщения. Сообщения с одинаковым
// ключом обрабатываются по одному в порядке получения.
type KeyFunc func(body []byte) string

// ConsumerMessage читает очередь и раскладывает сообщения по parallel
// обработчикам по ключу. Блокируется до отмены ctx или закрытия канала и
// дожидается сообщений, которые уже переданы обработчикам.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, parallel int, key KeyFunc, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"
	log = log.With(slog.String("op", op), slog.String("queue", queueName))

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
	return Dispatch(ctx, log, delivery, parallel, key, handler)
}

// Dispatch обрабатывает уже полученные доставки: раскладывает их по parallel
// обработчикам по ключу и подтверждает или возвращает в очередь каждую.
func Dispatch(ctx context.Context, log *slog.Logger, delivery <-chan amqp.Delivery, parallel int, key KeyFunc, handler Handler) error {
	if parallel <= 0 {
		parallel = 1
	}

	var wg sync.WaitGroup
	shards := make([]chan amqp.Delivery, parallel)
	for i := range shards {
		shards[i] = make(chan amqp.Delivery, 1)
		wg.Add(1)
		go func(in <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range in {
				process(ctx, log, d, handler)
			}
		}(shards[i])
	}
	defer func() {
		for _, s := range shards {
			close(s)
		}
		wg.Wait()
	}()

	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				log.Info("delivery channel closed")
				return nil
			}
			select {
			case shards[shard(key, d.Body, parallel)] <- d:
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					log.Error("failed to nack message", sl.Err(err))
				}
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func process(ctx context.Context, log *slog.Logger, d amqp.Delivery, handler Handler) {
	if err := handler(ctx, d.Body); err != nil {
		log.Error("failed to handle message", sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}

func shard(key KeyFunc, body []byte, n int) int {
	if key == nil || n == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key(body)))
	return int(h.Sum32() % uint32(n))
}
