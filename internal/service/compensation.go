package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// provisional is a mutation paired with the step that reverses it.
// apply reports whether the mutation took effect; undo is only queued when
// it did.
type provisional struct {
	name  string
	apply func(ctx context.Context) (bool, error)
	undo  func(ctx context.Context) error
}

// compensator tracks applied provisional mutations within one workflow.
type compensator struct {
	applied []provisional
	log     zerolog.Logger
}

func newCompensator(log zerolog.Logger) *compensator {
	return &compensator{log: log}
}

// attempt applies p and, if it took effect, remembers its undo.
func (c *compensator) attempt(ctx context.Context, p provisional) (bool, error) {
	ok, err := p.apply(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", p.name, err)
	}
	if ok {
		c.applied = append(c.applied, p)
	}
	return ok, nil
}

// compensate undoes every applied mutation in reverse order. All undos are
// tried even if one fails; the failures are joined.
func (c *compensator) compensate(ctx context.Context) error {
	var errs []error
	for i := len(c.applied) - 1; i >= 0; i-- {
		p := c.applied[i]
		if err := p.undo(ctx); err != nil {
			c.log.Error().Err(err).Str("step", p.name).Msg("compensation failed")
			errs = append(errs, fmt.Errorf("undo %s: %w", p.name, err))
			continue
		}
		c.log.Debug().Str("step", p.name).Msg("compensated")
	}
	c.applied = nil
	return errors.Join(errs...)
}
