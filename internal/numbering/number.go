package numbering

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nurpe/rental-contracts/internal/model"
)

type Prefix string

const (
	PrefixCamper  Prefix = "K"
	PrefixTrailer Prefix = "P"
)

var Prefixes = []Prefix{PrefixCamper, PrefixTrailer}

// PrefixFor maps a vehicle class name onto its numbering pool prefix.
func PrefixFor(vehicleClass string) Prefix {
	if model.KindOf(vehicleClass) == model.VehicleKindTrailer {
		return PrefixTrailer
	}
	return PrefixCamper
}

func parsePrefix(raw string) (Prefix, bool) {
	switch Prefix(strings.ToUpper(raw)) {
	case PrefixCamper:
		return PrefixCamper, true
	case PrefixTrailer:
		return PrefixTrailer, true
	}
	return "", false
}

// Number is a parsed contract number. New numbers are always written in the
// canonical seq/year/prefix layout; prefix/seq/year is accepted on read only.
type Number struct {
	Sequence int
	Year     int
	Prefix   Prefix
	Layout   model.NumberLayout
}

func (n Number) String() string {
	return fmt.Sprintf("%d/%d/%s", n.Sequence, n.Year, n.Prefix)
}

func (n Number) InPool(year int, prefix Prefix) bool {
	return n.Year == year && n.Prefix == prefix
}

// Parse reads a contract number in either layout.
func Parse(raw string) (Number, bool) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 {
		return Number{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if prefix, ok := parsePrefix(parts[2]); ok {
		seq, okSeq := parsePositive(parts[0])
		year, okYear := parsePositive(parts[1])
		if okSeq && okYear {
			return Number{Sequence: seq, Year: year, Prefix: prefix, Layout: model.NumberLayoutCanonical}, true
		}
	}
	if prefix, ok := parsePrefix(parts[0]); ok {
		seq, okSeq := parsePositive(parts[1])
		year, okYear := parsePositive(parts[2])
		if okSeq && okYear {
			return Number{Sequence: seq, Year: year, Prefix: prefix, Layout: model.NumberLayoutLegacy}, true
		}
	}
	return Number{}, false
}

func parsePositive(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// PoolMax returns the highest sequence among numbers belonging to the pool,
// ignoring anything unparseable or foreign. Zero when nothing matches.
func PoolMax(numbers []string, year int, prefix Prefix) int {
	highest := 0
	for _, raw := range numbers {
		n, ok := Parse(raw)
		if !ok || !n.InPool(year, prefix) {
			continue
		}
		if n.Sequence > highest {
			highest = n.Sequence
		}
	}
	return highest
}
