package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress is returned while another worker holds the key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

// lockTTL bounds how long a crashed worker can block a key.
const lockTTL = 5 * time.Minute

// pollInterval is the wait between lock attempts on a busy key.
const pollInterval = 100 * time.Millisecond

type Operation func(ctx context.Context) (interface{}, error)

type Result struct {
	Response  interface{}
	FromCache bool
}

// Manager runs an operation at most once per key within ttl. A failed
// operation stores nothing, so the same key may be retried.
type Manager interface {
	Execute(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fn Operation,
	) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		locked, err := m.store.Lock(ctx, key, lockTTL)
		if err != nil {
			return nil, err
		}

		if !locked {
			record, err := m.store.Get(ctx, key)
			if err != nil {
				return nil, err
			}

			if record != nil {
				switch record.Status {
				case StatusProcessing:
					return nil, ErrRequestInProgress
				case StatusCompleted:
					var response interface{}
					if len(record.Response) > 0 {
						if err := json.Unmarshal(record.Response, &response); err != nil {
							return nil, err
						}
					}
					return &Result{Response: response, FromCache: true}, nil
				}
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pollInterval):
				continue
			}
		}

		return m.run(ctx, key, ttl, fn)
	}
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	// a record may have been written between our Get and Lock
	if record, err := m.store.Get(ctx, key); err == nil && record != nil && record.Status == StatusCompleted {
		return &Result{FromCache: true}, nil
	}

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	responseBytes, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{
		Status:   StatusCompleted,
		Response: responseBytes,
	}, ttl); err != nil {
		return nil, err
	}

	return &Result{
		Response:  result,
		FromCache: false,
	}, nil
}
