package sim

// Clock holds the current virtual time in ticks.
// It only moves forward, by jumping to the timestamp of the next event.
type Clock struct {
	now int64
}

// Now returns the current virtual time.
func (c *Clock) Now() int64 {
	return c.now
}

// AdvanceTo moves the clock to t. Moving backwards is a causality error.
func (c *Clock) AdvanceTo(t int64) error {
	if t < c.now {
		return newSimError(ErrCausality, c.now, "clock cannot move back to tick %d", t)
	}
	c.now = t
	return nil
}
