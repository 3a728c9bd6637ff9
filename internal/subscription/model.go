// Package subscription holds the subscriber → channel edge. Edges are
// only counted by the views; nothing here mutates them.
package subscription

import (
	"time"

	"videotube-api/internal/pipeline"
)

const Collection = "subscriptions"

type Subscription struct {
	ID         string
	Subscriber string
	Channel    string
	CreatedAt  time.Time
}

func (s Subscription) Document() pipeline.Document {
	return pipeline.Document{
		"_id":        s.ID,
		"subscriber": s.Subscriber,
		"channel":    s.Channel,
		"createdAt":  s.CreatedAt,
	}
}
