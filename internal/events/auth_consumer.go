package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	AuthTopic   = "auth-events"
	AuthGroupID = "storefront-auth-consumer"

	StateSignedIn  = "signed_in"
	StateSignedOut = "signed_out"
)

// AuthEvent is published by the identity provider on every sign-in and
// sign-out.
type AuthEvent struct {
	UserID string `json:"user_id"`
	State  string `json:"state"`
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type SignOuter interface {
	SignOutUser(userID string) int
}

// AuthConsumer signs out every live session of a user when the provider
// reports that the user signed out elsewhere.
type AuthConsumer struct {
	reader  MessageReader
	target  SignOuter
	log     *slog.Logger
	backoff time.Duration
}

func NewAuthConsumer(target SignOuter, log *slog.Logger, brokers ...string) *AuthConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    AuthTopic,
		GroupID:  AuthGroupID,
		MaxBytes: 1e6,
	})
	return NewAuthConsumerWithReader(reader, target, log)
}

func NewAuthConsumerWithReader(reader MessageReader, target SignOuter, log *slog.Logger) *AuthConsumer {
	return &AuthConsumer{reader: reader, target: target, log: log, backoff: time.Second}
}

// Run consumes until ctx is cancelled.
func (c *AuthConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.log.Error("error reading auth event", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}
		c.handle(ctx, m)
	}
}

func (c *AuthConsumer) handle(ctx context.Context, m kafka.Message) {
	var ev AuthEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		c.log.WarnContext(ctx, "malformed auth event skipped", "offset", m.Offset, "error", err)
		return
	}
	if ev.UserID == "" {
		c.log.WarnContext(ctx, "auth event without user_id skipped", "offset", m.Offset)
		return
	}

	switch ev.State {
	case StateSignedOut:
		n := c.target.SignOutUser(ev.UserID)
		c.log.InfoContext(ctx, "user signed out", "user_id", ev.UserID, "sessions", n)
	case StateSignedIn:
		// sessions pick the user up from the bearer token on their next request
	default:
		c.log.WarnContext(ctx, "unknown auth state", "user_id", ev.UserID, "state", ev.State)
	}
}

func (c *AuthConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing reader", "error", err)
	}
}
