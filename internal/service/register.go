package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/nurpe/rental-contracts/internal/model"
	"github.com/nurpe/rental-contracts/internal/numbering"
)

type ExportResult struct {
	FileName string
	Content  []byte
}

// PoolRegister lists every contract of the year per numbering pool, including
// legacy-layout numbers and sequences that were issued more than once.
func (s *ContractService) PoolRegister(ctx context.Context, year int) (model.PoolRegister, error) {
	if year <= 0 {
		return model.PoolRegister{}, fmt.Errorf("%w: year is required", ErrValidation)
	}

	contracts, err := s.contracts.ListByNumberYear(ctx, year)
	if err != nil {
		return model.PoolRegister{}, err
	}

	entries := make(map[numbering.Prefix][]model.PoolEntry, len(numbering.Prefixes))
	numbers := make(map[numbering.Prefix][]string, len(numbering.Prefixes))
	for _, c := range contracts {
		n, ok := numbering.Parse(c.ContractNumber)
		if !ok || n.Year != year {
			continue
		}
		var start *model.Date
		if !c.StartDate.IsZero() {
			d := model.DateIn(c.StartDate, s.calc.Location())
			start = &d
		}
		entries[n.Prefix] = append(entries[n.Prefix], model.PoolEntry{
			ContractNumber: c.ContractNumber,
			Sequence:       n.Sequence,
			Layout:         n.Layout,
			TenantName:     c.Tenant.DisplayName(),
			StartDate:      start,
			Value:          c.Value,
			Status:         c.Status,
		})
		numbers[n.Prefix] = append(numbers[n.Prefix], c.ContractNumber)
	}

	register := model.PoolRegister{Year: year}
	for _, prefix := range numbering.Prefixes {
		list := entries[prefix]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Sequence < list[j].Sequence
		})
		register.Pools = append(register.Pools, model.Pool{
			Year:       year,
			Prefix:     string(prefix),
			Entries:    list,
			Max:        numbering.PoolMax(numbers[prefix], year, prefix),
			Duplicates: duplicateSequences(list),
		})
	}
	return register, nil
}

func (s *ContractService) ExportPoolRegister(ctx context.Context, year int) (*ExportResult, error) {
	register, err := s.PoolRegister(ctx, year)
	if err != nil {
		return nil, err
	}
	content, err := s.exporter.Generate(register)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("contract-pools-%d.xlsx", year),
		Content:  content,
	}, nil
}

func duplicateSequences(entries []model.PoolEntry) []int {
	counts := make(map[int]int, len(entries))
	for _, e := range entries {
		counts[e.Sequence]++
	}
	var dups []int
	for seq, count := range counts {
		if count > 1 {
			dups = append(dups, seq)
		}
	}
	sort.Ints(dups)
	return dups
}
