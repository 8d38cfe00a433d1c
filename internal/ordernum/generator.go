// Package ordernum allocates human-readable order numbers of the form
// ORD-<year>-<seq>.
package ordernum

import (
	"context"
	"fmt"
	"time"
)

// Store allocates the next value of a per-year sequence. Implementations must
// make the allocation atomic and scoped to the caller's transaction.
type Store interface {
	NextOrderSequence(ctx context.Context, year int) (int64, error)
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Next(ctx context.Context, s Store, now time.Time) (string, error) {
	year := now.Year()
	seq, err := s.NextOrderSequence(ctx, year)
	if err != nil {
		return "", fmt.Errorf("allocate order number for %d: %w", year, err)
	}
	return Format(year, seq), nil
}

// Format pads seq to at least three digits.
func Format(year int, seq int64) string {
	return fmt.Sprintf("ORD-%d-%03d", year, seq)
}
