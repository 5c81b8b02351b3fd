package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/textdex-cloud/textdex/internal/domain"
)

// errTimeExceeded aborts collection when the request timeout passes. It is
// internal control flow: the query phase catches it and returns the partial
// results gathered so far with the timed-out flag set.
var errTimeExceeded = errors.New("query time exceeded")

// checkInterval amortizes the cost of time and context checks.
const checkInterval = 1024

// cancelChecker watches the request context and an optional deadline.
// Checks are amortized so the hot collection loop does not touch the clock
// on every document.
type cancelChecker struct {
	ctx      context.Context
	deadline time.Time
	timed    bool
	counter  int
}

func newCancelChecker(ctx context.Context, timeout time.Duration) *cancelChecker {
	c := &cancelChecker{ctx: ctx}
	if timeout > 0 {
		c.timed = true
		c.deadline = time.Now().Add(timeout)
	}
	return c
}

// check returns errTimeExceeded past the deadline, or a cancellation error
// when the context is done. Most calls return nil without touching the
// clock.
func (c *cancelChecker) check() error {
	c.counter++
	if c.counter%checkInterval != 0 {
		return nil
	}
	return c.checkNow()
}

// checkNow performs the check unconditionally. Used at segment boundaries
// and during query rewrite, where iterations are expensive.
func (c *cancelChecker) checkNow() error {
	if err := c.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSearchCancelled, err)
	}
	if c.timed && time.Now().After(c.deadline) {
		return errTimeExceeded
	}
	return nil
}
