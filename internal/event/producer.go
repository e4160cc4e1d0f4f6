package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agromart/marketplace/internal/domain"
	pkgkafka "github.com/agromart/marketplace/pkg/kafka"
)

// Kafka topics for marketplace domain events.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicOrderPlaced    = pkgkafka.Topic("order", "placed")
)

const (
	AggregateTypeProduct = "product"
	AggregateTypeOrder   = "order"
)

const Source = "marketplace"

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID           string   `json:"id"`
	SellerID     string   `json:"seller_id"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Category     string   `json:"category"`
	SellingPrice int64    `json:"selling_price"`
	Quantity     int      `json:"quantity"`
	ImageKeys    []string `json:"image_keys,omitempty"`
}

// OrderPlacedData is the payload of order.placed.
type OrderPlacedData struct {
	OrderID       string             `json:"order_id"`
	UserID        string             `json:"user_id"`
	TotalAmount   int64              `json:"total_amount"`
	PaymentMethod string             `json:"payment_method"`
	Items         []domain.OrderItem `json:"items"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes marketplace domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, AggregateTypeProduct, product.ID, productData(product))
}

func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, AggregateTypeProduct, product.ID, productData(product))
}

func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	data := OrderPlacedData{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.Payment.Method,
		Items:         order.Items,
	}
	return p.publish(ctx, TopicOrderPlaced, AggregateTypeOrder, order.ID, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateType, aggregateID string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateType, aggregateID, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func productData(p *domain.Product) ProductData {
	d := ProductData{
		ID:           p.ID,
		SellerID:     p.SellerID,
		Name:         p.Name,
		Brand:        p.Brand,
		Category:     p.Category,
		SellingPrice: p.SellingPrice,
		Quantity:     p.Quantity,
	}
	for _, img := range p.Images {
		d.ImageKeys = append(d.ImageKeys, img.StorageKey)
	}
	return d
}
