package pubsub

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
)

func TestResourceNames(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{TopicResourceName("biskaken", "bk-notification-events"), "projects/biskaken/topics/bk-notification-events"},
		{TopicResourceName("biskaken", "projects/other/topics/t"), "projects/other/topics/t"},
		{SubscriptionResourceName("biskaken", " sms-sender "), "projects/biskaken/subscriptions/sms-sender"},
		{SubscriptionResourceName("biskaken", "projects/other/topics/t"), "projects/biskaken/subscriptions/projects/other/topics/t"},
		{TopicResourceName("", "t"), ""},
		{SubscriptionResourceName("biskaken", ""), ""},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("expected %q got %q", tt.want, tt.got)
		}
	}
}

func TestLookupClassifiesErrors(t *testing.T) {
	ctx := context.Background()
	if err := lookup(ctx, "topic", "", nil); err == nil {
		t.Fatalf("expected error for blank name")
	}
	missing := lookup(ctx, "topic", "projects/p/topics/t", func(context.Context, string) error {
		return status.Error(codes.NotFound, "gone")
	})
	if missing == nil || !strings.Contains(missing.Error(), "does not exist") {
		t.Fatalf("expected not found message, got %v", missing)
	}
	boom := errors.New("deadline")
	if err := lookup(ctx, "topic", "projects/p/topics/t", func(context.Context, string) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{NotificationTopic: "t"}, nil); !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); !errors.Is(err, errNoTopic) {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("t") != nil {
		t.Fatalf("nil client should return no publisher")
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}
