package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    10e3,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
	})

	return &Consumer{reader: reader}
}

// EventHandler reacts to listing pipeline events. Services implement only
// the events they care about and no-op the rest.
type EventHandler interface {
	HandleScrapeRequest(event ScrapeRequestEvent) error
	HandleRunCompleted(event RunCompletedEvent) error
	HandleNewListings(event NewListingsEvent) error
}

// ProcessEvents reads and dispatches events until ctx is cancelled.
func (c *Consumer) ProcessEvents(ctx context.Context, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			log.Println("Consumer stopping...")
			return ctx.Err()
		default:
			message, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.handleMessage(message, handler); err != nil {
				log.Printf("Error handling message: %v", err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) handleMessage(message kafka.Message, handler EventHandler) error {
	log.Printf("Received message: key=%s, partition=%d, offset=%d",
		string(message.Key), message.Partition, message.Offset)

	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return err
	}

	switch envelope.EventType {
	case EventScrapeRequest:
		var event ScrapeRequestEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return err
		}
		return handler.HandleScrapeRequest(event)

	case EventRunCompleted:
		var event RunCompletedEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return err
		}
		return handler.HandleRunCompleted(event)

	case EventNewListings:
		var event NewListingsEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return err
		}
		return handler.HandleNewListings(event)

	default:
		log.Printf("Unknown event type: %s", envelope.EventType)
		return nil
	}
}
