package pulsar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPulsate(t *testing.T) {
	p := NewPulsar(5 * time.Millisecond)
	pulses := p.Pulsate()

	for i := 0; i < 3; i++ {
		select {
		case <-pulses:
		case <-time.After(time.Second):
			t.Fatalf("no pulse received after %d pulses", i)
		}
	}

	p.Stop()
	p.Stop()

	// the channel is closed once the pulsar is stopped
	deadline := time.After(time.Second)

	for {
		select {
		case _, ok := <-pulses:
			if !ok {
				return
			}
		case <-deadline:
			assert.Fail(t, "pulse channel was not closed after Stop")
			return
		}
	}
}
