package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// IngestMessage asks a worker to run the pipeline for one stored document.
type IngestMessage struct {
	DocumentID string `json:"document_id"`
}

type IngestPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewIngestPublisher(conn *amqp.Connection, queueName string) *IngestPublisher {
	return &IngestPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// PublishIngest enqueues a persistent ingestion job.
func (p *IngestPublisher) PublishIngest(ctx context.Context, documentID string) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(IngestMessage{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("marshal ingest message failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			MessageId:    documentID,
		},
	); err != nil {
		return fmt.Errorf("publish ingest message failed: %w", err)
	}
	return nil
}
