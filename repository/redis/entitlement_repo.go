package redis

import (
	"context"
	"fmt"
	"sort"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/nexus/repository"
)

// readTrials returns the counter, initialising it on first sight.
var readTrials = redislib.NewScript(`
local v = redis.call('HGET', KEYS[1], ARGV[1])
if not v then
  v = ARGV[2]
  redis.call('HSET', KEYS[1], ARGV[1], v)
end
return tonumber(v)
`)

// consumeTrial decrements the counter but never below zero.
// Returns {remaining, consumed}.
var consumeTrial = redislib.NewScript(`
local v = redis.call('HGET', KEYS[1], ARGV[1])
if not v then v = ARGV[2] end
v = tonumber(v)
if v <= 0 then
  redis.call('HSET', KEYS[1], ARGV[1], '0')
  return {0, 0}
end
v = v - 1
redis.call('HSET', KEYS[1], ARGV[1], tostring(v))
return {v, 1}
`)

type entitlementRepository struct {
	client    redislib.Cmdable
	prefix    string
	trialRuns int
}

// NewEntitlementRepository stores the owned set as a Redis set and trial
// counters as a hash, one of each per user.
func NewEntitlementRepository(client redislib.Cmdable, trialRuns int) repository.EntitlementRepository {
	if trialRuns < 0 {
		trialRuns = 0
	}
	return &entitlementRepository{client: client, prefix: "nexus:entitlements:", trialRuns: trialRuns}
}

func (r *entitlementRepository) IsOwned(ctx context.Context, userID, listingID string) (bool, error) {
	return r.client.SIsMember(ctx, r.ownedKey(userID), listingID).Result()
}

func (r *entitlementRepository) Grant(ctx context.Context, userID, listingID string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.ownedKey(userID), listingID).Result()
	if err != nil {
		return false, fmt.Errorf("redis grant: %w", err)
	}
	return added == 1, nil
}

func (r *entitlementRepository) Revoke(ctx context.Context, userID, listingID string) (bool, error) {
	removed, err := r.client.SRem(ctx, r.ownedKey(userID), listingID).Result()
	if err != nil {
		return false, fmt.Errorf("redis revoke: %w", err)
	}
	return removed == 1, nil
}

func (r *entitlementRepository) Owned(ctx context.Context, userID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.ownedKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis owned: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *entitlementRepository) RemainingTrials(ctx context.Context, userID, listingID string) (int, error) {
	left, err := readTrials.Run(ctx, r.client, []string{r.trialsKey(userID)}, listingID, r.trialRuns).Int()
	if err != nil {
		return 0, fmt.Errorf("redis trials: %w", err)
	}
	return left, nil
}

func (r *entitlementRepository) ConsumeTrial(ctx context.Context, userID, listingID string) (int, bool, error) {
	res, err := consumeTrial.Run(ctx, r.client, []string{r.trialsKey(userID)}, listingID, r.trialRuns).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis consume trial: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("redis consume trial: unexpected reply %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}

func (r *entitlementRepository) ownedKey(userID string) string {
	return r.prefix + userID + ":owned"
}

func (r *entitlementRepository) trialsKey(userID string) string {
	return r.prefix + userID + ":trials"
}
