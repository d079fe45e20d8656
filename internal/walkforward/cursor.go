package walkforward

// lastKnown carries the most recent prediction forward across dates that
// have no model output. It starts at 0.
type lastKnown struct {
	value float64
}

func (c *lastKnown) advance(v float64) {
	c.value = v
}

func (c *lastKnown) current() float64 {
	return c.value
}
