package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/domain/ports/repository"
)

// purchaseKey is the legacy storage key for the gating purchase record.
const purchaseKey = "boughtaccount"

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

// PurchaseRepo persists the single gating PurchaseRecord in Redis.
// Saves replace the whole record, so readers never see a torn value.
type PurchaseRepo struct {
	client RedisClient
}

func NewPurchaseRepo(client RedisClient) *PurchaseRepo {
	return &PurchaseRepo{client: client}
}

func (r *PurchaseRepo) Save(ctx context.Context, rec *model.PurchaseRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal purchase record: %w", err)
	}
	return r.client.Set(ctx, purchaseKey, data, 0)
}

func (r *PurchaseRepo) Find(ctx context.Context) (*model.PurchaseRecord, error) {
	data, err := r.client.Get(ctx, purchaseKey)
	if err != nil {
		if errors.Is(err, ErrNil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var rec model.PurchaseRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal purchase record: %w", err)
	}
	return &rec, nil
}

func (r *PurchaseRepo) Clear(ctx context.Context) error {
	return r.client.Del(ctx, purchaseKey)
}
