package clickhouse

import (
	"context"
	"fmt"
	"sync"

	"raydium-sniper/internal/store"
)

// defaultBatchSize is how many samples accumulate before a flush.
const defaultBatchSize = 256

// SampleSink implements store.SampleSink using ClickHouse. Samples are
// buffered and written in batches; Close flushes the remainder.
type SampleSink struct {
	conn      *Conn
	batchSize int

	mu     sync.Mutex
	buffer []*store.PriceSample
}

// NewSampleSink creates a sink writing to conn. batchSize <= 0 selects
// the default.
func NewSampleSink(conn *Conn, batchSize int) *SampleSink {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &SampleSink{
		conn:      conn,
		batchSize: batchSize,
	}
}

var _ store.SampleSink = (*SampleSink)(nil)

// Record buffers a sample, flushing when the batch is full.
func (s *SampleSink) Record(ctx context.Context, sample *store.PriceSample) error {
	s.mu.Lock()
	s.buffer = append(s.buffer, sample)
	if len(s.buffer) < s.batchSize {
		s.mu.Unlock()
		return nil
	}
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	return s.flush(ctx, batch)
}

// Flush writes any buffered samples immediately.
func (s *SampleSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return s.flush(ctx, batch)
}

// Close flushes the remaining buffer. The connection's lifecycle is
// owned by the caller.
func (s *SampleSink) Close() error {
	return s.Flush(context.Background())
}

func (s *SampleSink) flush(ctx context.Context, samples []*store.PriceSample) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (mint, account, role, ts, amount)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sample := range samples {
		err := batch.Append(
			sample.Mint, sample.Account, sample.Role,
			sample.Timestamp, sample.Amount,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
