package repository

import "context"

// PricingFeedRepository loads the raw cached pricing feed ("tillfetch").
// The feed is an ordered list of loosely typed values; tier prices live at
// fixed positions. Store exists for seeding and tests.
type PricingFeedRepository interface {
	Load(ctx context.Context) ([]string, error)
	Store(ctx context.Context, feed []string) error
}
