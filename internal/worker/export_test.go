package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Settle runs one message through a handler with a fixed clock.
func Settle(p *Processor, maxAge time.Duration, now, published time.Time, data []byte, m interface {
	Ack()
	Nack()
}) {
	h := newHandler(p, maxAge, zerolog.Nop())
	h.now = func() time.Time { return now }
	h.settle(context.Background(), published, data, m)
}
