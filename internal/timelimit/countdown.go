package timelimit

// Countdown tracks a stage's time limit in simulated seconds. It fires its
// expiry callbacks once, on the Advance that reaches the limit.
type Countdown struct {
	limit    float64
	elapsed  float64
	running  bool
	expired  bool
	onExpire []func()
}

// New returns a stopped Countdown for limit seconds.
func New(limit float64) *Countdown {
	return &Countdown{limit: limit}
}

// OnExpire registers fn to run when the limit is reached.
func (c *Countdown) OnExpire(fn func()) {
	c.onExpire = append(c.onExpire, fn)
}

// Start resets elapsed time and begins counting.
func (c *Countdown) Start() {
	c.elapsed = 0
	c.expired = false
	c.running = true
}

// Stop halts counting without resetting.
func (c *Countdown) Stop() {
	c.running = false
}

// Advance adds dt while running. Reaching the limit clamps elapsed, stops
// the countdown and fires the expiry callbacks.
func (c *Countdown) Advance(dt float64) {
	if !c.running || !(dt > 0) {
		return
	}
	c.elapsed += dt
	if c.elapsed < c.limit {
		return
	}
	c.elapsed = c.limit
	c.running = false
	c.expired = true
	for _, fn := range c.onExpire {
		fn()
	}
}

func (c *Countdown) Running() bool    { return c.running }
func (c *Countdown) Expired() bool    { return c.expired }
func (c *Countdown) Elapsed() float64 { return c.elapsed }
func (c *Countdown) Limit() float64   { return c.limit }

// Remaining returns the seconds left before expiry.
func (c *Countdown) Remaining() float64 {
	return c.limit - c.elapsed
}

// Progress returns elapsed/limit in [0, 1].
func (c *Countdown) Progress() float64 {
	if c.limit <= 0 {
		return 1
	}
	p := c.elapsed / c.limit
	if p > 1 {
		return 1
	}
	return p
}
