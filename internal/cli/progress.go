package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	progressStart    = 10
	progressStep     = 5
	progressCap      = 95
	progressInterval = 300 * time.Millisecond
)

// progressNotifier draws a cosmetic percentage while an analysis runs. It
// does not reflect real progress: it climbs on a timer and stops short of
// 100 until Finish reports success.
type progressNotifier struct {
	w        io.Writer
	label    string
	interval time.Duration

	mu      sync.Mutex
	percent int

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startProgress(ctx context.Context, w io.Writer, label string) *progressNotifier {
	return startProgressEvery(ctx, w, label, progressInterval)
}

func startProgressEvery(ctx context.Context, w io.Writer, label string, interval time.Duration) *progressNotifier {
	p := &progressNotifier{
		w:        w,
		label:    label,
		interval: interval,
		percent:  progressStart,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	p.draw(progressStart)
	go p.run(ctx)
	return p
}

func (p *progressNotifier) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			if p.percent < progressCap {
				p.percent = min(p.percent+progressStep, progressCap)
			}
			percent := p.percent
			p.mu.Unlock()
			p.draw(percent)
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		}
	}
}

func (p *progressNotifier) draw(percent int) {
	fmt.Fprintf(p.w, "\r%s... %3d%%", p.label, percent)
}

// Percent returns the last value drawn.
func (p *progressNotifier) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}

// Finish stops the ticker. On success the bar jumps to 100%.
// Only the first call has any effect.
func (p *progressNotifier) Finish(success bool) {
	p.once.Do(func() {
		close(p.stop)
		<-p.done

		p.mu.Lock()
		if success {
			p.percent = 100
		}
		percent := p.percent
		p.mu.Unlock()

		if success {
			p.draw(percent)
			fmt.Fprintln(p.w, " done")
		} else {
			fmt.Fprintln(p.w, " failed")
		}
	})
}
