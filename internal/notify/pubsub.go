package notify

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/zap"

	"github.com/jbours/siteharvest/internal/logging"
)

// PubSubProvider publishes events to a Google Cloud Pub/Sub topic.
type PubSubProvider struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewPubSub creates a Pub/Sub client and topic publisher. Authentication is
// handled via Application Default Credentials.
func NewPubSub(ctx context.Context, projectID, topicName string) (*PubSubProvider, error) {
	if projectID == "" || topicName == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	logging.L.Info("Pub/Sub publisher initialized",
		zap.String("project", projectID),
		zap.String("topic", topicName),
	)
	return &PubSubProvider{
		client:    client,
		publisher: client.Publisher(topicName),
	}, nil
}

// Publish marshals the event to JSON and publishes it, waiting for the
// server-assigned message ID.
func (p *PubSubProvider) Publish(ctx context.Context, event DomainProcessed) (string, error) {
	if p.publisher == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"domain": event.Domain,
		},
	}
	result := p.publisher.Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event: %w", err)
	}
	return id, nil
}

// Close stops the publisher and closes the client.
func (p *PubSubProvider) Close() error {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("close pubsub client: %w", err)
		}
	}
	return nil
}
