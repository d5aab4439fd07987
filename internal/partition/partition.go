// Package partition splits ordered item lists into deterministic buckets so
// that several CI agents can each run a disjoint share of the test projects.
package partition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidPartition = errors.New("invalid partition")

// Partition selects bucket Index (zero-based) out of Count buckets.
type Partition struct {
	Index int
	Count int
}

// Single is the partition that owns every item.
func Single() Partition {
	return Partition{Index: 0, Count: 1}
}

func New(index, count int) (Partition, error) {
	if count < 1 {
		return Partition{}, fmt.Errorf("%w: count must be at least 1, got %d", ErrInvalidPartition, count)
	}
	if index < 0 || index >= count {
		return Partition{}, fmt.Errorf(
			"%w: index %d out of range for %d partitions",
			ErrInvalidPartition, index, count,
		)
	}
	return Partition{Index: index, Count: count}, nil
}

// Parse reads the CLI form "k/n" where k is 1-based. An empty string yields
// Single.
func Parse(s string) (Partition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Single(), nil
	}
	part, total, ok := strings.Cut(s, "/")
	if !ok {
		return Partition{}, fmt.Errorf("%w: %q is not of the form k/n", ErrInvalidPartition, s)
	}
	k, err := strconv.Atoi(strings.TrimSpace(part))
	if err != nil {
		return Partition{}, fmt.Errorf("%w: %q: %v", ErrInvalidPartition, s, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil {
		return Partition{}, fmt.Errorf("%w: %q: %v", ErrInvalidPartition, s, err)
	}
	return New(k-1, n)
}

// String renders the 1-based CLI form.
func (p Partition) String() string {
	return fmt.Sprintf("%d/%d", p.Index+1, p.Count)
}

// Owns reports whether the item at position i belongs to this partition.
func (p Partition) Owns(i int) bool {
	if p.Count < 1 {
		return false
	}
	return i%p.Count == p.Index
}

// Select returns the subsequence of items owned by p, preserving order.
func Select[T any](p Partition, items []T) []T {
	out := make([]T, 0, len(items)/max(p.Count, 1)+1)
	for i, item := range items {
		if p.Owns(i) {
			out = append(out, item)
		}
	}
	return out
}

// Split distributes items into count buckets round-robin.
func Split[T any](count int, items []T) ([][]T, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1, got %d", ErrInvalidPartition, count)
	}
	buckets := make([][]T, count)
	for i := range buckets {
		buckets[i] = Select(Partition{Index: i, Count: count}, items)
	}
	return buckets, nil
}
