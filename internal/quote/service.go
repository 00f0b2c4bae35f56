package quote

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/pkg/metrics"
)

// DefaultTimeout bounds a single network lookup including retries.
const DefaultTimeout = 5 * time.Second

// Service fetches quotes through per-network readers guarded by a circuit
// breaker and a retry policy, with an optional Redis cache in front.
type Service struct {
	readers  map[int64]ChainReader
	breakers map[int64]*apperrors.CircuitBreaker
	cache    *Cache
	retry    apperrors.RetryPolicy
	timeout  time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithCache(cache *Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithRetryPolicy(policy apperrors.RetryPolicy) Option {
	return func(s *Service) {
		s.retry = policy
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithBreakerOptions tunes the per-network circuit breakers.
func WithBreakerOptions(opts ...apperrors.BreakerOption) Option {
	return func(s *Service) {
		for id := range s.breakers {
			s.breakers[id] = apperrors.NewCircuitBreaker(opts...)
		}
	}
}

// NewService builds a Service. readers is keyed by chain id; networks without
// a reader render as unavailable.
func NewService(readers map[int64]ChainReader, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		readers:  make(map[int64]ChainReader, len(readers)),
		breakers: make(map[int64]*apperrors.CircuitBreaker, len(readers)),
		retry:    apperrors.DefaultRetryPolicy,
		timeout:  DefaultTimeout,
		now:      time.Now,
		log:      log,
	}
	for id, r := range readers {
		if r == nil {
			continue
		}
		s.readers[id] = r
		s.breakers[id] = apperrors.NewCircuitBreaker()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetQuote returns the quote for network, served from cache when fresh.
func (s *Service) GetQuote(ctx context.Context, network Network) (Quote, error) {
	if cached, err := s.cache.Get(ctx, network); err != nil {
		s.log.Debug("quote cache read failed", slog.String("network", network.Name), slog.Any("error", err))
	} else if cached != nil {
		return *cached, nil
	}

	q, err := s.fetch(ctx, network)
	if err != nil {
		return Quote{Network: network, Err: err}, err
	}

	if err := s.cache.Set(ctx, q); err != nil {
		s.log.Debug("quote cache write failed", slog.String("network", network.Name), slog.Any("error", err))
	}
	return q, nil
}

// Snapshot looks up every network concurrently. It never fails: a network
// that could not be read carries its error in Quote.Err.
func (s *Service) Snapshot(ctx context.Context) []Quote {
	networks := Networks()
	quotes := make([]Quote, len(networks))

	g, gctx := errgroup.WithContext(ctx)
	for i, network := range networks {
		i, network := i, network
		g.Go(func() error {
			q, err := s.GetQuote(gctx, network)
			if err != nil {
				s.log.Warn("quote lookup failed", slog.String("network", network.Name), slog.Any("error", err))
			}
			quotes[i] = q
			return nil
		})
	}
	_ = g.Wait()

	return quotes
}

// Refresh bypasses the cache and stores fresh quotes for every network.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	networks := Networks()
	refreshed := make([]bool, len(networks))

	g, gctx := errgroup.WithContext(ctx)
	for i, network := range networks {
		i, network := i, network
		g.Go(func() error {
			q, err := s.fetch(gctx, network)
			if err != nil {
				s.log.Warn("quote refresh failed", slog.String("network", network.Name), slog.Any("error", err))
				return nil
			}
			if err := s.cache.Set(gctx, q); err != nil {
				return apperrors.NewStorageError(err)
			}
			refreshed[i] = true
			return nil
		})
	}
	err := g.Wait()

	count := 0
	for _, ok := range refreshed {
		if ok {
			count++
		}
	}
	return count, err
}

func (s *Service) fetch(ctx context.Context, network Network) (Quote, error) {
	reader, ok := s.readers[network.ChainID]
	if !ok {
		return Quote{}, apperrors.NewExternalAPIError(network.Name, ErrUnsupportedNetwork)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	var q Quote
	err := s.breakers[network.ChainID].Call(func() error {
		return s.retry.Do(ctx, func() error {
			height, err := reader.BlockNumber(ctx)
			if err != nil {
				return apperrors.NewExternalAPIError(network.Name, err)
			}
			gas, err := reader.SuggestGasPrice(ctx)
			if err != nil {
				return apperrors.NewExternalAPIError(network.Name, err)
			}

			q = Quote{Network: network, BlockHeight: height, GasPrice: gas, FetchedAt: s.now()}
			return nil
		})
	})
	metrics.RecordQuoteLookup(network.Name, err, time.Since(start))

	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.NewExternalAPIError(network.Name, err)
		}
		return Quote{}, err
	}
	return q, nil
}
