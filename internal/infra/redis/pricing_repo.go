package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/ports/repository"
)

// pricingKey is the legacy storage key for the raw pricing feed.
const pricingKey = "tillfetch"

var _ repository.PricingFeedRepository = (*PricingFeedRepo)(nil)

// PricingFeedRepo loads the raw "tillfetch" feed from Redis. The feed is a
// JSON array of loosely typed values; numbers and strings are both coerced
// to strings so the catalog can parse prices at its fixed positions.
type PricingFeedRepo struct {
	client RedisClient
}

func NewPricingFeedRepo(client RedisClient) *PricingFeedRepo {
	return &PricingFeedRepo{client: client}
}

func (r *PricingFeedRepo) Load(ctx context.Context) ([]string, error) {
	data, err := r.client.Get(ctx, pricingKey)
	if err != nil {
		if errors.Is(err, ErrNil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var raw []any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("parse pricing feed: %w", err)
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case string:
			out[i] = t
		case float64:
			out[i] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(t)
		}
	}
	return out, nil
}

func (r *PricingFeedRepo) Store(ctx context.Context, feed []string) error {
	data, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("marshal pricing feed: %w", err)
	}
	return r.client.Set(ctx, pricingKey, data, 0)
}
