package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/ports/repository"
)

var _ repository.PromoIntentRepository = (*PromoIntentRepo)(nil)

// PromoIntentRepo keeps pre-order promo intents in Redis. An intent created
// by a referral deep link only matters for the session it arrived in, so it
// expires instead of accumulating.
type PromoIntentRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewPromoIntentRepo(client RedisClient, ttl time.Duration) *PromoIntentRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PromoIntentRepo{client: client, ttl: ttl}
}

func (r *PromoIntentRepo) intentKey(userID int64) string {
	return fmt.Sprintf("promo_intent:%d", userID)
}

func (r *PromoIntentRepo) Set(ctx context.Context, userID int64, intent *repository.PromoIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.intentKey(userID), data, r.ttl)
}

func (r *PromoIntentRepo) Get(ctx context.Context, userID int64) (*repository.PromoIntent, error) {
	data, err := r.client.Get(ctx, r.intentKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var intent repository.PromoIntent
	if err := json.Unmarshal([]byte(data), &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *PromoIntentRepo) Clear(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, r.intentKey(userID))
}
