package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"jurisrag/internal/platform/rabbitmq"
)

// Processor runs the ingestion pipeline for one stored document.
type Processor interface {
	Process(ctx context.Context, documentID string) error
}

// IngestWorker consumes ingestion jobs from RabbitMQ.
type IngestWorker struct {
	conn      *amqp.Connection
	processor Processor
	queueName string
	prefetch  int
	log       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, processor Processor, queueName string, prefetch int, log zerolog.Logger) *IngestWorker {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &IngestWorker{
		conn:      conn,
		processor: processor,
		queueName: queueName,
		prefetch:  prefetch,
		log:       log.With().Str("component", "ingest_worker").Logger(),
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	sem := make(chan struct{}, w.prefetch)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				w.wg.Add(1)
				go func(d amqp.Delivery) {
					defer w.wg.Done()
					defer func() { <-sem }()
					w.handle(workerCtx, d)
				}(d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) handle(ctx context.Context, d amqp.Delivery) {
	var msg rabbitmq.IngestMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.DocumentID == "" {
		w.log.Error().Err(err).Msg("decode ingest message failed")
		_ = d.Nack(false, false)
		return
	}

	// the document row carries the failure, so the job is not requeued
	if err := w.processor.Process(ctx, msg.DocumentID); err != nil {
		w.log.Error().Err(err).Str("document_id", msg.DocumentID).Msg("ingest job failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
