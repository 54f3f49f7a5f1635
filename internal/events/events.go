// Package events publishes post lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectPostCreated  = "ysocial.posts.created"
	SubjectPostRejected = "ysocial.posts.rejected"
	SubjectPostDeleted  = "ysocial.posts.deleted"
)

// PostEvent is the payload published for every subject.
type PostEvent struct {
	Username string    `json:"username"`
	PostID   int64     `json:"post_id,omitempty"`
	Hashtags []string  `json:"hashtags,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Removed  int       `json:"removed,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, event PostEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, PostEvent) error { return nil }
func (Nop) Close() error                                     { return nil }

type NATS struct {
	conn *nats.Conn
}

func Connect(url string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("ysocial"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATS{conn: conn}, nil
}

func (n *NATS) Publish(ctx context.Context, subject string, event PostEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.conn.Publish(subject, data)
}

func (n *NATS) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
