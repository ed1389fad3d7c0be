package pool

import (
	"fmt"
	"strconv"
	"strings"
)

// SerialRange represents an inclusive serial range.
type SerialRange struct {
	From uint64
	To   uint64
}

// ParseSerials expands a comma-separated list of serials and inclusive ranges,
// e.g. "1-3,7" becomes [1 2 3 7].
func ParseSerials(input string) ([]uint64, error) {
	ranges, err := ParseRanges(input)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0)
	for _, r := range ranges {
		for serial := r.From; ; serial++ {
			out = append(out, serial)
			if serial == r.To {
				break
			}
		}
	}
	return out, nil
}

// ParseRanges parses a comma-separated list of serials and inclusive ranges.
func ParseRanges(input string) ([]SerialRange, error) {
	ranges := make([]SerialRange, 0)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, "-")
		start, err := strconv.ParseUint(strings.TrimSpace(from), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid serial %q: %w", part, err)
		}
		end := start
		if isRange {
			end, err = strconv.ParseUint(strings.TrimSpace(to), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid serial %q: %w", part, err)
			}
		}
		if end < start {
			return nil, fmt.Errorf("invalid serial range %q: end before start", part)
		}
		ranges = append(ranges, SerialRange{From: start, To: end})
	}
	return ranges, nil
}

// SplitBatches splits serials into consecutive batches of at most batchSize.
func SplitBatches(serials []uint64, batchSize int) ([][]uint64, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}

	batches := make([][]uint64, 0, (len(serials)+batchSize-1)/batchSize)
	for start := 0; start < len(serials); start += batchSize {
		end := start + batchSize
		if end > len(serials) {
			end = len(serials)
		}
		batches = append(batches, serials[start:end])
	}
	return batches, nil
}
