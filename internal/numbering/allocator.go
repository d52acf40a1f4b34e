package numbering

import (
	"context"
	"errors"
	"fmt"

	"github.com/nurpe/rental-contracts/internal/model"
)

var ErrQueryFailed = errors.New("contract number query failed")

// Source lists existing contract numbers that may belong to a pool. It is free
// to return extra entries; the allocator filters them.
type Source interface {
	ContractNumbers(ctx context.Context, year int, prefix string) ([]string, error)
}

type Allocator struct {
	source Source
}

func NewAllocator(source Source) *Allocator {
	return &Allocator{source: source}
}

func (a *Allocator) PoolMax(ctx context.Context, year int, prefix Prefix) (int, error) {
	numbers, err := a.source.ContractNumbers(ctx, year, string(prefix))
	if err != nil {
		return 0, fmt.Errorf("%w: pool %d/%s: %v", ErrQueryFailed, year, prefix, err)
	}
	return PoolMax(numbers, year, prefix), nil
}

// Allocate scans the pool once and returns the next sequence.
func (a *Allocator) Allocate(ctx context.Context, vehicleClass string, year int) (Number, error) {
	prefix := PrefixFor(vehicleClass)
	highest, err := a.PoolMax(ctx, year, prefix)
	if err != nil {
		return Number{}, err
	}
	return Number{Sequence: highest + 1, Year: year, Prefix: prefix, Layout: model.NumberLayoutCanonical}, nil
}

// Batch holds per-pool counters for one submission so that contracts created in
// the same batch never need to be visible to a fresh query.
type Batch struct {
	year     int
	counters map[Prefix]int
}

// NewBatch reads the current maximum of every pool for the year exactly once.
func (a *Allocator) NewBatch(ctx context.Context, year int) (*Batch, error) {
	b := &Batch{year: year, counters: make(map[Prefix]int, len(Prefixes))}
	for _, prefix := range Prefixes {
		highest, err := a.PoolMax(ctx, year, prefix)
		if err != nil {
			return nil, err
		}
		b.counters[prefix] = highest
	}
	return b, nil
}

func (b *Batch) Next(vehicleClass string) Number {
	prefix := PrefixFor(vehicleClass)
	b.counters[prefix]++
	return Number{Sequence: b.counters[prefix], Year: b.year, Prefix: prefix, Layout: model.NumberLayoutCanonical}
}

func (b *Batch) Year() int {
	return b.year
}
