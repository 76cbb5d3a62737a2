package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"loyaltykit/core"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine.Ledger interface using Redis as the backend.
// Data structure:
// - acct:{account}:balance -> int64 (cached balance)
// - acct:{account}:ledger -> list of transaction JSON blobs, newest first
// - acct:{account}:earned -> int64 (sum of positive deltas)
// - acct:{account}:count:{action} -> int64 (per-action occurrence count)
// - acct:{account}:guard:{action} -> zset of content refs scored by last-seen unix ms
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed ledger with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", core.ErrStorageUnavailable)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func balanceKey(account core.AccountID) string {
	return fmt.Sprintf("acct:%s:balance", account)
}

func ledgerKey(account core.AccountID) string {
	return fmt.Sprintf("acct:%s:ledger", account)
}

func earnedKey(account core.AccountID) string {
	return fmt.Sprintf("acct:%s:earned", account)
}

func countKey(account core.AccountID, action core.ActionID) string {
	return fmt.Sprintf("acct:%s:count:%s", account, action)
}

func guardKey(account core.AccountID, action core.ActionID) string {
	return fmt.Sprintf("acct:%s:guard:%s", account, action)
}

// appendScript records one ledger entry atomically: balance, history, earned
// total, per-action count, and the cooldown guard all move in a single step.
// The entry JSON arrives with balance_after set to 0 and is patched here once
// the new balance is known.
var appendScript = redis.NewScript(`
	local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
	local delta = tonumber(ARGV[1])
	local next_val = balance + delta

	if next_val > 9223372036854775807 or next_val < -9223372036854775808 then
		return redis.error_reply('integer overflow')
	end

	redis.call('SET', KEYS[1], next_val)

	local entry = string.gsub(ARGV[2], '"balance_after":0', '"balance_after":' .. tostring(next_val), 1)
	redis.call('LPUSH', KEYS[2], entry)

	if delta > 0 then
		redis.call('INCRBY', KEYS[3], delta)
	end
	redis.call('INCR', KEYS[4])
	redis.call('ZADD', KEYS[5], tonumber(ARGV[3]), ARGV[4])

	return next_val
`)

// Append records a transaction atomically. The Lua script is the serialization
// point for the account: Redis runs scripts single-threaded, so concurrent
// appends to the same account cannot lose updates.
func (s *Store) Append(ctx context.Context, account core.AccountID, in core.AppendInput) (core.Transaction, error) {
	tx := core.Transaction{
		ID:         uuid.NewString(),
		Account:    account,
		Action:     in.Action,
		ContentRef: in.ContentRef,
		Delta:      in.Delta,
		Kind:       in.Kind,
		Reason:     in.Reason,
		Metadata:   in.Metadata,
		CreatedAt:  time.Now().UTC(),
	}
	blob, err := json.Marshal(tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("marshal transaction: %w", err)
	}

	keys := []string{
		balanceKey(account),
		ledgerKey(account),
		earnedKey(account),
		countKey(account, in.Action),
		guardKey(account, in.Action),
	}
	result, err := appendScript.Run(ctx, s.client, keys,
		in.Delta, string(blob), tx.CreatedAt.UnixMilli(), string(in.ContentRef)).Result()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("failed to append transaction: %w", err)
	}

	next, ok := result.(int64)
	if !ok {
		return core.Transaction{}, errors.New("unexpected result type from Redis script")
	}
	tx.BalanceAfter = next
	return tx, nil
}

func (s *Store) Balance(ctx context.Context, account core.AccountID) (int64, error) {
	balance, err := s.client.Get(ctx, balanceKey(account)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (s *Store) HasSince(ctx context.Context, account core.AccountID, action core.ActionID, ref core.ContentRef, since time.Time) (bool, error) {
	score, err := s.client.ZScore(ctx, guardKey(account, action), string(ref)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check cooldown guard: %w", err)
	}
	return int64(score) >= since.UnixMilli(), nil
}

func (s *Store) CountAction(ctx context.Context, account core.AccountID, action core.ActionID) (int64, error) {
	n, err := s.client.Get(ctx, countKey(account, action)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count action: %w", err)
	}
	return n, nil
}

func (s *Store) Recent(ctx context.Context, account core.AccountID, limit int) ([]core.Transaction, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	blobs, err := s.client.LRange(ctx, ledgerKey(account), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	txs := make([]core.Transaction, 0, len(blobs))
	for _, blob := range blobs {
		var tx core.Transaction
		if err := json.Unmarshal([]byte(blob), &tx); err != nil {
			return nil, fmt.Errorf("corrupt ledger entry: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *Store) TotalEarned(ctx context.Context, account core.AccountID) (int64, error) {
	raw, err := s.client.Get(ctx, earnedKey(account)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get earned total: %w", err)
	}
	return strconv.ParseInt(raw, 10, 64)
}

var _ interface {
	Append(ctx context.Context, account core.AccountID, in core.AppendInput) (core.Transaction, error)
	Balance(ctx context.Context, account core.AccountID) (int64, error)
	HasSince(ctx context.Context, account core.AccountID, action core.ActionID, ref core.ContentRef, since time.Time) (bool, error)
	CountAction(ctx context.Context, account core.AccountID, action core.ActionID) (int64, error)
	Recent(ctx context.Context, account core.AccountID, limit int) ([]core.Transaction, error)
	TotalEarned(ctx context.Context, account core.AccountID) (int64, error)
} = (*Store)(nil)
