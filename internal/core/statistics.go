package core

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

// numeric reports whether a card value coerces to a finite number.
func numeric(value string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ComputeStatistics derives reveal statistics.
// Average, min, max and range use numeric votes only and are nil without any.
// Mode covers every vote and is nil only when there are no votes.
func ComputeStatistics(votes map[domain.UserID]domain.Vote) domain.Statistics {
	var stats domain.Statistics
	if len(votes) == 0 {
		return stats
	}

	counts := make(map[string]int, len(votes))
	sum := decimal.Zero
	numericCount := 0
	lo, hi := math.Inf(1), math.Inf(-1)

	for _, v := range votes {
		counts[v.Value]++
		f, ok := numeric(v.Value)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v.Value))
		if err != nil {
			d = decimal.NewFromFloat(f)
		}
		sum = sum.Add(d)
		numericCount++
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}

	if numericCount > 0 {
		avg, _ := sum.Div(decimal.NewFromInt(int64(numericCount))).Float64()
		rng := hi - lo
		stats.Average = &avg
		stats.Min = &lo
		stats.Max = &hi
		stats.Range = &rng
	}

	mode := pickMode(counts)
	stats.Mode = &mode
	return stats
}

func pickMode(counts map[string]int) string {
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		a, b := values[i], values[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return modeBefore(a, b)
	})
	return values[0]
}

// modeBefore orders tied values: numeric before non-numeric, lower numbers first,
// non-numeric values alphabetically.
func modeBefore(a, b string) bool {
	fa, aNum := numeric(a)
	fb, bNum := numeric(b)
	switch {
	case aNum && bNum:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case aNum:
		return true
	case bNum:
		return false
	default:
		return a < b
	}
}
