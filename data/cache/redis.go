package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/KotFed0t/fund_tracker_bot/config"
	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/utils"
	"github.com/redis/go-redis/v9"
)

const fundSearchPrefix = "fund_search:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

// fundSearchKey keeps the keyword's case, the backend decides how case is matched.
func fundSearchKey(keyword string) string {
	return fundSearchPrefix + strings.TrimSpace(keyword)
}

func (r *RedisCache) SetFundSearch(ctx context.Context, keyword string, options []model.FundOption) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetFundSearch", slog.String("rqID", rqID), slog.String("keyword", keyword))

	optionsJson, err := json.Marshal(options)
	if err != nil {
		slog.Error("can't marshall fund options", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall fund options")
	}

	err = r.redis.Set(ctx, fundSearchKey(keyword), optionsJson, r.cfg.Cache.FundSearchExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetFundSearch completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetFundSearch(ctx context.Context, keyword string) ([]model.FundOption, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := fundSearchKey(keyword)
	slog.Debug("GetFundSearch start", slog.String("rqID", rqID), slog.String("key", key))

	res, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		}
		return nil, err
	}

	var options []model.FundOption
	err = json.Unmarshal([]byte(res), &options)
	if err != nil {
		slog.Error(
			"can't unmarshall fund options",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return nil, errors.New("can't unmarshall fund options")
	}

	slog.Debug("GetFundSearch finished", slog.String("rqID", rqID))

	return options, nil
}
