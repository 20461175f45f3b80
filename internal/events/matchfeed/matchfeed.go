// Package matchfeed delivers push-style match notifications from the
// always-on scanner listener. When the scanner subsystem performs matching
// itself it reports the matched identity out-of-band; verification
// orchestrators subscribe here instead of polling the device.
package matchfeed

import "context"

// Event is one match notification, consumed once.
type Event struct {
	IdentityToken string `json:"identity_token"`
	SourceAddr    string `json:"source_addr"`
}

// HandlerFunc receives events for one subscriber. Handlers run on the feed's
// delivery goroutine and should hand work off quickly.
type HandlerFunc func(ctx context.Context, ev Event)

// Subscription detaches a subscriber. Unsubscribe is idempotent and safe to
// call from any goroutine; after it returns no further events are delivered.
type Subscription interface {
	Unsubscribe()
}

// Feed is a subscribable stream of match events.
type Feed interface {
	Subscribe(ctx context.Context, fn HandlerFunc) (Subscription, error)
}
