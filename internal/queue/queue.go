// Package queue carries résumé parse jobs from the API server to the
// worker over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/streadway/amqp"
)

const ResumeQueue = "resume_jobs"

// ResumeJob tells the worker which stored object to parse.
type ResumeJob struct {
	ResumeID  string `json:"resume_id"`
	UserID    string `json:"user_id"`
	ObjectKey string `json:"object_key"`
	MIMEType  string `json:"mime_type"`
}

// Publisher sends jobs onto the durable résumé queue.
type Publisher struct {
	conn *amqp.Connection
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	if _, err := declareQueue(ch); err != nil {
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

func (p *Publisher) PublishResumeJob(ctx context.Context, job ResumeJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "marshal job")
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	err = ch.Publish("", ResumeQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return errors.Wrap(err, "publish job")
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}

// Consumer receives jobs on the résumé queue, one unacked message at a
// time per channel.
type Consumer struct {
	conn *amqp.Connection
}

func NewConsumer(url string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	return &Consumer{conn: conn}, nil
}

// Consume runs handler for every job until the connection closes or ctx
// is canceled. A handler error leaves the message requeued once.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, ResumeJob) error) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	if _, err := declareQueue(ch); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return errors.Wrap(err, "set qos")
	}

	msgs, err := ch.Consume(ResumeQueue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("consume channel closed")
			}

			var job ResumeJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				// Malformed payloads can never succeed, drop them.
				msg.Nack(false, false)
				continue
			}
			if err := handler(ctx, job); err != nil {
				msg.Nack(false, !msg.Redelivered)
				continue
			}
			msg.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	return c.conn.Close()
}

func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(ResumeQueue, true, false, false, false, nil)
	if err != nil {
		return q, errors.Wrap(err, "declare queue")
	}
	return q, nil
}
