package queue

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/streadway/amqp"
)

// StatusExchange is the fanout exchange carrying résumé status transitions
// for anything that wants to follow parsing progress.
const StatusExchange = "resume_status"

// StatusEvent is one résumé state transition.
type StatusEvent struct {
	ResumeID string `json:"resume_id"`
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// PublishStatus fans a transition out on the status exchange.
func (p *Publisher) PublishStatus(ctx context.Context, event StatusEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal status event")
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(StatusExchange, "fanout", true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "declare status exchange")
	}

	err = ch.Publish(StatusExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return errors.Wrap(err, "publish status event")
	}
	return nil
}
