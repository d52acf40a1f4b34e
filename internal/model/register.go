package model

import "github.com/shopspring/decimal"

type NumberLayout string

const (
	NumberLayoutCanonical NumberLayout = "canonical"
	NumberLayoutLegacy    NumberLayout = "legacy"
)

// PoolEntry is one contract listed in a numbering pool register.
type PoolEntry struct {
	ContractNumber string
	Sequence       int
	Layout         NumberLayout
	TenantName     string
	StartDate      *Date
	Value          decimal.Decimal
	Status         Status
}

type Pool struct {
	Year       int
	Prefix     string
	Entries    []PoolEntry
	Max        int
	Duplicates []int
}

func (p Pool) NextSequence() int {
	return p.Max + 1
}

type PoolRegister struct {
	Year  int
	Pools []Pool
}
