// Package pubsub publishes deployment events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gpubsub "cloud.google.com/go/pubsub"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/syncer"
)

// Config identifies the topic deployment events go to.
type Config struct {
	ProjectID string
	TopicID   string
}

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	client *gpubsub.Client
	topic  *gpubsub.Topic
}

// New creates a Publisher and verifies the topic exists, so a
// misconfigured deployment fails on startup rather than at publish time.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.ProjectID == "" || cfg.TopicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := gpubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(cfg.TopicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("check topic %q: %w (close client: %v)", cfg.TopicID, err, closeErr)
		}
		return nil, fmt.Errorf("check topic %q: %w", cfg.TopicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("pubsub topic %q does not exist (close client: %v)", cfg.TopicID, closeErr)
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist", cfg.TopicID)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Publish marshals the event to JSON and publishes it, blocking until the
// server acknowledges the message.
func (p *Publisher) Publish(ctx context.Context, event syncer.DeployEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal deploy event: %w", err)
	}
	result := p.topic.Publish(ctx, &gpubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event": "deployment",
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish deploy event: %w", err)
	}
	return nil
}

// Close stops the topic's publish goroutines and releases the client.
func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
