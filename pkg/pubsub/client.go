package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub notification topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client wraps the Pub/Sub v2 client with the project's resource names.
type Client struct {
	client    *pubsub.Client
	projectID string
	topic     string
	sub       string
}

// NewClient dials Pub/Sub and fails unless the notification topic (and the
// subscription, when configured) already exist. Resources are provisioned
// outside the app.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	topic := strings.TrimSpace(cfg.NotificationTopic)
	if topic == "" {
		return nil, errNoTopic
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.ApplicationCredentials); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	raw, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: raw, projectID: projectID, topic: topic, sub: strings.TrimSpace(cfg.NotificationSubscription)}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client ready")
	}
	return c, nil
}

// Publisher returns a handle for a bare topic ID or full resource name, or
// nil when the client is closed or the name is blank.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := TopicResourceName(c.projectID, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// Ping looks up the notification topic and optional subscription.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	err := lookup(ctx, "topic", TopicResourceName(c.projectID, c.topic), func(ctx context.Context, name string) error {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		return err
	})
	if err != nil || c.sub == "" {
		return err
	}
	return lookup(ctx, "subscription", SubscriptionResourceName(c.projectID, c.sub), func(ctx context.Context, name string) error {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		return err
	})
}

func lookup(ctx context.Context, kind, name string, get func(context.Context, string) error) error {
	if name == "" {
		return fmt.Errorf("%s not configured", kind)
	}
	err := get(ctx, name)
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %s does not exist", kind, name)
	default:
		return fmt.Errorf("looking up %s %s: %w", kind, name, err)
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func TopicResourceName(projectID, name string) string {
	return resourceName(projectID, "topics", name)
}

func SubscriptionResourceName(projectID, name string) string {
	return resourceName(projectID, "subscriptions", name)
}

// resourceName expands a bare ID to projects/<p>/<kind>/<id>. Names that are
// already qualified for kind pass through.
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}
