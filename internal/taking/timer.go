package taking

import (
	"context"
	"time"

	"github.com/mind-engage/mindengage-exams/internal/notify"
)

// Ticker delivers ticks until stopped. *time.Ticker satisfies it through
// NewTimeTicker; tests drive ticks by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// startTimerLocked begins the one-second countdown. c.mu must be held.
func (c *Controller) startTimerLocked(ctx context.Context) {
	c.stopTimerLocked()
	t := c.newTicker(time.Second)
	stop := make(chan struct{})
	c.ticker, c.stopTick = t, stop
	go c.countdown(ctx, t, stop)
}

// stopTimerLocked cancels the countdown, if any. c.mu must be held.
func (c *Controller) stopTimerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.stopTick)
	c.ticker, c.stopTick = nil, nil
}

func (c *Controller) countdown(ctx context.Context, t Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C():
		}

		c.mu.Lock()
		if c.stopTick != stop {
			c.mu.Unlock()
			return
		}
		c.remaining -= time.Second
		expired := c.remaining <= 0
		if expired {
			c.remaining = 0
			c.stopTimerLocked()
		}
		c.mu.Unlock()

		if expired {
			c.tell(notify.Warning, notify.KeyTimeUp)
			if err := c.submit(ctx); err != nil {
				c.logger.Printf("auto-submit %s: %v", c.QuizID(), err)
			}
			return
		}
	}
}
