// Package memory provides in-memory store implementations for tests and
// dry runs without a filesystem or database footprint.
package memory

import (
	"context"
	"sync"

	"raydium-sniper/internal/store"
)

// SummaryStore keeps session summaries in memory.
type SummaryStore struct {
	mu        sync.Mutex
	summaries []*store.SessionSummary
}

// NewSummaryStore creates an empty in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{}
}

func (s *SummaryStore) Append(_ context.Context, summary *store.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	return nil
}

// Summaries returns a copy of all appended summaries.
func (s *SummaryStore) Summaries() []*store.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*store.SessionSummary(nil), s.summaries...)
}

// OrderStore keeps order results in memory.
type OrderStore struct {
	mu      sync.Mutex
	results []*store.OrderResult
}

// NewOrderStore creates an empty in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

func (s *OrderStore) Append(_ context.Context, r *store.OrderResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *OrderStore) Close() error { return nil }

// Results returns a copy of all appended results.
func (s *OrderStore) Results() []*store.OrderResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*store.OrderResult(nil), s.results...)
}

// Blacklist keeps banned addresses in memory.
type Blacklist struct {
	mu        sync.Mutex
	addresses map[string]struct{}
}

// NewBlacklist creates an empty in-memory blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{addresses: make(map[string]struct{})}
}

func (b *Blacklist) Contains(address string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.addresses[address]
	return ok
}

func (b *Blacklist) Add(address string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses[address] = struct{}{}
	return nil
}

// SampleSink keeps price samples in memory.
type SampleSink struct {
	mu      sync.Mutex
	samples []*store.PriceSample
}

// NewSampleSink creates an empty in-memory sample sink.
func NewSampleSink() *SampleSink {
	return &SampleSink{}
}

func (s *SampleSink) Record(_ context.Context, sample *store.PriceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *SampleSink) Close() error { return nil }

// Samples returns a copy of all recorded samples.
func (s *SampleSink) Samples() []*store.PriceSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*store.PriceSample(nil), s.samples...)
}

var (
	_ store.SummaryStore = (*SummaryStore)(nil)
	_ store.OrderStore   = (*OrderStore)(nil)
	_ store.Blacklist    = (*Blacklist)(nil)
	_ store.SampleSink   = (*SampleSink)(nil)
)
