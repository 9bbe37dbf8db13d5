// Package limits meters work done by a running script.
package limits

import "fmt"

// Budget counts executed instructions against a fixed limit. A zero limit
// is unlimited; a nil Budget ignores every charge.
type Budget struct {
	limit int64
	used  int64
}

func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used
}

// Reset forgets everything charged so far.
func (b *Budget) Reset() {
	if b != nil {
		b.used = 0
	}
}

func MaxStepsMessage(limit int64) string {
	return fmt.Sprintf("max instruction count exceeded (%d)", limit)
}

type ExceededError struct {
	Limit int64
}

func (e ExceededError) Error() string {
	return MaxStepsMessage(e.Limit)
}

// Charge adds n to the used count. Unlimited budgets still count, so Used
// reports the work done either way.
func (b *Budget) Charge(n int64) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.limit > 0 && b.used+n > b.limit {
		return ExceededError{Limit: b.limit}
	}
	b.used += n
	return nil
}
