package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Backend     = (*SharedMapBackend)(nil)
	_ driven.Observable  = (*SharedMapBackend)(nil)
	_ driven.Snapshotter = (*SharedMapBackend)(nil)
)

const (
	connectorsMap = "connectors"
	syncStatesMap = "sync_states"
)

// SharedMapBackend stores connectors and sync states in last-write-wins
// Redis hashes shared by every process using the same namespace. Each
// field has a sibling clock entry "<unix-nanos>:<origin>"; a write only
// lands if its stamp sorts after the stored one. Deletes are tombstones
// in the clock hash. Every applied write is announced on the changes
// channel so that all processes, including the writer, re-project.
type SharedMapBackend struct {
	client    *redis.Client
	namespace string
	origin    string
	logger    *slog.Logger
	clock     func() time.Time

	lastStamp atomic.Int64
	ready     atomic.Bool

	connectors *sharedCollection[*domain.Connector]
	syncStates *sharedCollection[*domain.SyncState]
}

// SharedMapConfig holds configuration for SharedMapBackend.
type SharedMapConfig struct {
	Client    *redis.Client
	Namespace string // default: DefaultNamespace
	Logger    *slog.Logger
}

// NewSharedMapBackend creates a shared map backend.
func NewSharedMapBackend(cfg SharedMapConfig) *SharedMapBackend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	b := &SharedMapBackend{
		client:    cfg.Client,
		namespace: ns,
		origin:    uuid.NewString(),
		logger:    logger,
		clock:     time.Now,
	}
	b.connectors = &sharedCollection[*domain.Connector]{backend: b, name: connectorsMap}
	b.syncStates = &sharedCollection[*domain.SyncState]{backend: b, name: syncStatesMap}
	return b
}

// Init checks connectivity. Once it has succeeded it is a no-op.
func (b *SharedMapBackend) Init(ctx context.Context) error {
	if b.ready.Load() {
		return nil
	}
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect shared map: %w", err)
	}
	b.ready.Store(true)
	return nil
}

func (b *SharedMapBackend) Connectors() driven.Collection[*domain.Connector] {
	return b.connectors
}

func (b *SharedMapBackend) SyncStates() driven.Collection[*domain.SyncState] {
	return b.syncStates
}

func (b *SharedMapBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close does not close the client, which the caller owns.
func (b *SharedMapBackend) Close() error {
	b.ready.Store(false)
	return nil
}

func (b *SharedMapBackend) dataKey(name string) string {
	return b.namespace + ":map:" + name + ":data"
}

func (b *SharedMapBackend) clockKey(name string) string {
	return b.namespace + ":map:" + name + ":clock"
}

func (b *SharedMapBackend) channel() string {
	return b.namespace + ":map:changes"
}

func (b *SharedMapBackend) checkReady() error {
	if !b.ready.Load() {
		return fmt.Errorf("shared map: %w", domain.ErrNotInitialized)
	}
	return nil
}

// stamp returns a clock value that is strictly increasing within this
// process and orders across processes by wall time, then origin.
func (b *SharedMapBackend) stamp() string {
	now := b.clock().UnixNano()
	for {
		last := b.lastStamp.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if b.lastStamp.CompareAndSwap(last, next) {
			return fmt.Sprintf("%020d:%s", next, b.origin)
		}
	}
}

// writeScript applies a write if its stamp is newer than the stored one.
// ARGV: field, value, stamp, tombstone ("1" deletes).
var writeScript = redis.NewScript(`
	local current = redis.call("HGET", KEYS[2], ARGV[1])
	if current and current >= ARGV[3] then
		return 0
	end
	redis.call("HSET", KEYS[2], ARGV[1], ARGV[3])
	if ARGV[4] == "1" then
		redis.call("HDEL", KEYS[1], ARGV[1])
	else
		redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
	end
	return 1
`)

// change is the payload published after every applied write.
type change struct {
	Map    string `json:"map"`
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

func (b *SharedMapBackend) write(ctx context.Context, name, key, value string, tombstone bool) error {
	if err := b.checkReady(); err != nil {
		return err
	}

	flag := "0"
	if tombstone {
		flag = "1"
	}
	keys := []string{b.dataKey(name), b.clockKey(name)}
	applied, err := writeScript.Run(ctx, b.client, keys, key, value, b.stamp(), flag).Int64()
	if err != nil {
		return fmt.Errorf("write %s %s: %w", name, key, err)
	}
	if applied == 0 {
		b.logger.Debug("shared map write superseded", "map", name, "key", key)
		return nil
	}

	payload, _ := json.Marshal(change{Map: name, Key: key, Origin: b.origin})
	if err := b.client.Publish(ctx, b.channel(), payload).Err(); err != nil {
		// The write has landed; observers pick it up on the next change.
		b.logger.Warn("failed to publish shared map change", "map", name, "key", key, "error", err)
	}
	return nil
}

// Snapshot reads the full contents of both maps in one transaction.
func (b *SharedMapBackend) Snapshot(ctx context.Context) (driven.Snapshot, error) {
	if err := b.checkReady(); err != nil {
		return driven.Snapshot{}, err
	}

	var connCmd, stateCmd *redis.MapStringStringCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		connCmd = pipe.HGetAll(ctx, b.dataKey(connectorsMap))
		stateCmd = pipe.HGetAll(ctx, b.dataKey(syncStatesMap))
		return nil
	})
	if err != nil {
		return driven.Snapshot{}, fmt.Errorf("read shared map: %w", err)
	}

	conns, err := decodeAll[*domain.Connector](connCmd.Val())
	if err != nil {
		return driven.Snapshot{}, err
	}
	states, err := decodeAll[*domain.SyncState](stateCmd.Val())
	if err != nil {
		return driven.Snapshot{}, err
	}
	return driven.Snapshot{Connectors: conns, SyncStates: states}, nil
}

// Watch subscribes to the changes channel and calls fn with a fresh
// snapshot after every change. Changes that arrive while fn is running are
// coalesced into one call. The subscription is confirmed before Watch
// returns.
func (b *SharedMapBackend) Watch(ctx context.Context, fn func(driven.Snapshot)) (func(), error) {
	if err := b.checkReady(); err != nil {
		return nil, err
	}

	sub := b.client.Subscribe(ctx, b.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe to shared map: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	msgs := sub.Channel()

	go func() {
		defer close(done)
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				drain(msgs)
				snap, err := b.Snapshot(watchCtx)
				if err != nil {
					if watchCtx.Err() == nil {
						b.logger.Warn("failed to read shared map after change", "error", err)
					}
					continue
				}
				fn(snap)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			sub.Close()
			<-done
		})
	}
	return stop, nil
}

// drain discards messages already queued; one snapshot covers them all.
func drain(msgs <-chan *redis.Message) {
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func decodeAll[T driven.Keyed](fields map[string]string) ([]T, error) {
	records := make([]T, 0, len(fields))
	for key, data := range fields {
		var record T
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("decode shared map entry %s: %w", key, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// sharedCollection is one named map inside the backend.
type sharedCollection[T driven.Keyed] struct {
	backend *SharedMapBackend
	name    string
}

func (c *sharedCollection[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	if err := c.backend.checkReady(); err != nil {
		return zero, err
	}

	data, err := c.backend.client.HGet(ctx, c.backend.dataKey(c.name), key).Result()
	if errors.Is(err, redis.Nil) {
		return zero, domain.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("get %s %s: %w", c.name, key, err)
	}

	var record T
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return zero, fmt.Errorf("decode %s %s: %w", c.name, key, err)
	}
	return record, nil
}

// GetAll returns the map's values in no particular order.
func (c *sharedCollection[T]) GetAll(ctx context.Context) ([]T, error) {
	if err := c.backend.checkReady(); err != nil {
		return nil, err
	}

	fields, err := c.backend.client.HGetAll(ctx, c.backend.dataKey(c.name)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	return decodeAll[T](fields)
}

func (c *sharedCollection[T]) Put(ctx context.Context, record T) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	return c.backend.write(ctx, c.name, record.StoreKey(), string(data), false)
}

func (c *sharedCollection[T]) Delete(ctx context.Context, key string) error {
	return c.backend.write(ctx, c.name, key, "", true)
}
