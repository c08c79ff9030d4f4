package ingest

import (
	"github.com/okian/salesbonus/internal/domain/dedupe"
	"github.com/okian/salesbonus/internal/domain/parse"
	"github.com/okian/salesbonus/pkg/logger"
)

// Option configures a Processor.
type Option func(*Processor)

// WithChannel restricts Accept to one channel.
func WithChannel(channelID string) Option {
	return func(p *Processor) {
		p.channelID = channelID
	}
}

// WithDeduper skips messages whose id was already processed this period.
func WithDeduper(d dedupe.Deduper) Option {
	return func(p *Processor) {
		p.deduper = d
	}
}

// WithPersist sets the write-through hook.
func WithPersist(fn PersistFunc) Option {
	return func(p *Processor) {
		p.persist = fn
	}
}

// WithClassifier replaces the default classifier.
func WithClassifier(c *parse.Classifier) Option {
	return func(p *Processor) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}
