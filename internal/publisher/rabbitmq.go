package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"paper_recommender/internal/domain"
)

const ActionCreated = "created"

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
	now        func() time.Time
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// declareTopology declares a durable direct exchange and binds the queue to it.
func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// RecommendationMessage is the event body published for every new recommendation.
type RecommendationMessage struct {
	Action         string                `json:"action"`
	Recommendation RecommendationPayload `json:"recommendation"`
	Timestamp      time.Time             `json:"timestamp"`
}

type RecommendationPayload struct {
	ID              int64     `json:"id"`
	JournalID       int64     `json:"journal_id"`
	Journal         string    `json:"journal,omitempty"`
	Title           string    `json:"title"`
	Authors         []string  `json:"authors"`
	Year            *int      `json:"year,omitempty"`
	ExternalID      string    `json:"external_id"`
	Score           float64   `json:"score"`
	Category        string    `json:"category"`
	Reason          string    `json:"reason"`
	MatchedKeywords string    `json:"matched_keywords"`
	FetchedAt       time.Time `json:"fetched_at"`
}

func NewRecommendationMessage(rec *domain.Recommendation, at time.Time) RecommendationMessage {
	authors := rec.Authors
	if authors == nil {
		authors = []string{}
	}
	return RecommendationMessage{
		Action: ActionCreated,
		Recommendation: RecommendationPayload{
			ID:              rec.ID,
			JournalID:       rec.JournalID,
			Journal:         rec.JournalName,
			Title:           rec.Title,
			Authors:         authors,
			Year:            rec.Year,
			ExternalID:      rec.ExternalID,
			Score:           rec.Score,
			Category:        string(rec.Category),
			Reason:          rec.Reason,
			MatchedKeywords: rec.MatchedKeywords,
			FetchedAt:       rec.FetchedAt,
		},
		Timestamp: at.UTC(),
	}
}

func (r *RabbitMQ) Publish(ctx context.Context, rec *domain.Recommendation) error {
	now := r.now()

	body, err := json.Marshal(NewRecommendationMessage(rec, now))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    rec.ExternalID,
			Body:         body,
			Timestamp:    now,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published recommendation",
		"recommendation_id", rec.ID,
		"external_id", rec.ExternalID,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
