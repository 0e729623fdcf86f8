//go:build integration

package testinfra

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type TestSuite struct {
	Postgres *PostgresContainer
	Kafka    *KafkaContainer
	Redis    *RedisContainer
}

type SuiteOptions struct {
	WithKafka bool
	WithRedis bool
}

// NewTestSuite starts the requested containers in parallel. Postgres is always started.
func NewTestSuite(ctx context.Context, opts SuiteOptions) (*TestSuite, error) {
	suite := &TestSuite{}
	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		pg, err := NewPostgres(ctx)
		if err != nil {
			errCh <- fmt.Errorf("postgres: %w", err)
			return
		}
		suite.Postgres = pg
	}()

	if opts.WithKafka {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k, err := NewKafka(ctx)
			if err != nil {
				errCh <- fmt.Errorf("kafka: %w", err)
				return
			}
			suite.Kafka = k
		}()
	}

	if opts.WithRedis {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := NewRedis(ctx)
			if err != nil {
				errCh <- fmt.Errorf("redis: %w", err)
				return
			}
			suite.Redis = r
		}()
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		suite.Cleanup(ctx)
		return nil, fmt.Errorf("failed to start containers: %w", errors.Join(errs...))
	}

	return suite, nil
}

func (s *TestSuite) Cleanup(ctx context.Context) {
	if s.Redis != nil {
		s.Redis.Cleanup(ctx)
	}
	if s.Kafka != nil {
		s.Kafka.Cleanup(ctx)
	}
	if s.Postgres != nil {
		s.Postgres.Cleanup(ctx)
	}
}
