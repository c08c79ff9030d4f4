// Package ingest runs one message through normalize, classify and aggregate.
package ingest

import (
	"context"

	"github.com/okian/salesbonus/internal/domain/aggregate"
	"github.com/okian/salesbonus/internal/domain/dedupe"
	"github.com/okian/salesbonus/internal/domain/model"
	"github.com/okian/salesbonus/internal/domain/parse"
	"github.com/okian/salesbonus/pkg/logger"
	"github.com/okian/salesbonus/pkg/metrics"
)

// Outcome is what processing did with a message.
type Outcome int

// Outcomes.
const (
	OutcomeIgnored Outcome = iota
	OutcomeSale
	OutcomeName
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSale:
		return "sale"
	case OutcomeName:
		return "name"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "ignored"
	}
}

// Reasons a live message is not accepted.
const (
	ReasonBotAuthor    = "bot_author"
	ReasonOtherChannel = "other_channel"
	ReasonEmpty        = "empty"
)

// PersistFunc is invoked after every aggregate mutation.
type PersistFunc func(ctx context.Context)

// Processor applies messages to an Aggregator.
type Processor struct {
	agg        *aggregate.Aggregator
	classifier *parse.Classifier
	deduper    dedupe.Deduper
	persist    PersistFunc
	channelID  string
	log        logger.Logger
}

// NewProcessor returns a Processor writing into agg.
func NewProcessor(agg *aggregate.Aggregator, opts ...Option) *Processor {
	p := &Processor{
		agg:        agg,
		classifier: parse.NewClassifier(nil),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Accept filters live deliveries: bot authors and other channels are dropped. An empty
// configured channel accepts every channel.
func (p *Processor) Accept(msg model.Message) (bool, string) {
	if msg.AuthorIsBot {
		return false, ReasonBotAuthor
	}
	if p.channelID != "" && msg.ChannelID != p.channelID {
		return false, ReasonOtherChannel
	}
	return true, ""
}

// Process classifies msg and applies it. Lines that do not parse are ignored, never an error.
func (p *Processor) Process(ctx context.Context, msg model.Message) Outcome {
	if p.deduper != nil && msg.ID != "" && p.deduper.SeenAndRecord(ctx, msg.ID) {
		metrics.RecordDuplicate()
		p.log.Debug(ctx, "duplicate message skipped", logger.String("message_id", msg.ID))
		return OutcomeDuplicate
	}

	text := parse.Normalize(msg.Content)
	if text == "" {
		p.ignore(ctx, msg, ReasonEmpty)
		return OutcomeIgnored
	}

	c := p.classifier.Classify(text)
	switch c.Kind {
	case parse.KindSale:
		p.agg.RecordSale(c.Identifier, c.Amount, msg.CreatedAt, msg.ID)
		metrics.RecordSale(c.Amount)
		p.afterMutation(ctx)
		p.log.Debug(ctx, "sale recorded",
			logger.String("message_id", msg.ID),
			logger.String("identifier", c.Identifier),
			logger.Int64("amount", c.Amount))
		return OutcomeSale
	case parse.KindNameUpdate:
		p.agg.UpdateName(c.Identifier, c.Name)
		metrics.RecordNameUpdate()
		p.afterMutation(ctx)
		p.log.Debug(ctx, "name updated",
			logger.String("message_id", msg.ID),
			logger.String("identifier", c.Identifier),
			logger.String("name", c.Name))
		return OutcomeName
	default:
		p.ignore(ctx, msg, c.Reason)
		return OutcomeIgnored
	}
}

func (p *Processor) afterMutation(ctx context.Context) {
	metrics.UpdateEmployees(p.agg.Count())
	if p.persist != nil {
		p.persist(ctx)
	}
}

func (p *Processor) ignore(ctx context.Context, msg model.Message, reason string) {
	metrics.RecordMessageIgnored(reason)
	p.log.Debug(ctx, "line ignored", logger.String("message_id", msg.ID), logger.String("reason", reason))
}

// ResetDedupe forgets processed ids. It is a no-op without a deduper.
func (p *Processor) ResetDedupe(ctx context.Context) {
	if p.deduper != nil {
		p.deduper.Reset(ctx)
	}
}
