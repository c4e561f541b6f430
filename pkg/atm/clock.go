package atm

import (
	"context"
	"time"
)

// Run ticks the player in real time at the current tempo. It returns nil
// once playback stops and ctx.Err() if the context ends first. A paused
// player keeps Run waiting.
func (p *Player) Run(ctx context.Context) error {
	timer := time.NewTimer(p.TickInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		p.Tick()
		if p.State() == StateStopped {
			return nil
		}
		timer.Reset(p.TickInterval())
	}
}
