package pulsar

import (
	"sync"
	"time"
)

// Pulsar is a pulsating object that generates
// pulses at the configured time intervals. It
// can be used under any piece of code that needs
// to periodically execute.
// We can use it in the followinig way:
//	p := pulsar.NewPulsar(time.Second)	// pulse every 1 second
//	for pulse := range p.Pulsate() {
//		fmt.Println("received a pluse", pulse)
//	}
//
type Pulsar struct {
	Period   time.Duration
	pulse    *time.Ticker
	kill     chan struct{}
	pulsate  chan time.Time
	stopOnce sync.Once
}

// Stop stops producing pulses. This would allow the
// calling code to be released from a block on the
// pulsate channel or exit the for loop ranging on the
// channel - whichever pattern is followed. It is safe
// to call Stop more than once.
func (p *Pulsar) Stop() {
	p.stopOnce.Do(func() {
		close(p.kill)
	})
}

// Pulsate starts pulsating an existing pulsar. The
// pulses can be consumed on the returned channel,
// which is closed once the pulsar is stopped.
func (p *Pulsar) Pulsate() <-chan time.Time {
	go func() {
		defer p.pulse.Stop()
		defer close(p.pulsate)

		for {
			select {
			case <-p.kill:
				return
			case t := <-p.pulse.C:
				select {
				case p.pulsate <- t:
				case <-p.kill:
					return
				}
			}
		}
	}()

	return p.pulsate
}

// NewPulsar creates a new Pulsar that pulses once
// every period.
func NewPulsar(period time.Duration) *Pulsar {
	return &Pulsar{
		Period:  period,
		pulse:   time.NewTicker(period),
		kill:    make(chan struct{}),
		pulsate: make(chan time.Time),
	}
}
