package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{writer: writer}
}

func (p *Producer) PublishScrapeRequest(city string) error {
	event := ScrapeRequestEvent{
		EventType: EventScrapeRequest,
		City:      city,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal scrape_request event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte("scrape_request"),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(context.Background(), message); err != nil {
		return fmt.Errorf("failed to write scrape_request message: %w", err)
	}

	log.Printf("Published scrape_request event (city=%q)", city)
	return nil
}

func (p *Producer) PublishRunCompleted(event RunCompletedEvent) error {
	event.EventType = EventRunCompleted

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run_completed event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(fmt.Sprintf("run_%d", event.RunID)),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(context.Background(), message); err != nil {
		return fmt.Errorf("failed to write run_completed message: %w", err)
	}

	log.Printf("Published run_completed event: run_id=%d, city=%s, upserted=%d",
		event.RunID, event.City, event.ListingsUpserted)
	return nil
}

func (p *Producer) PublishNewListings(event NewListingsEvent) error {
	event.EventType = EventNewListings

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal new_listings event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(fmt.Sprintf("listings_run_%d", event.RunID)),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(context.Background(), message); err != nil {
		return fmt.Errorf("failed to write new_listings message: %w", err)
	}

	log.Printf("Published new_listings event: run_id=%d, count=%d", event.RunID, len(event.Listings))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
