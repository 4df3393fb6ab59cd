package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-procure/meridian-procure/internal/docparse"
	"github.com/meridian-procure/meridian-procure/internal/sourcing"
)

const (
	// TaskTypeParseQuote extracts a structured offer from a quote document.
	TaskTypeParseQuote = "rfq:parse_quote"

	// minParseConfidence gates automatic quote recording. Low-confidence
	// extractions are left for manual entry.
	minParseConfidence = 0.5
)

// ParseQuotePayload carries the document for one supplier quote.
type ParseQuotePayload struct {
	QuoteID  int64  `json:"quote_id"`
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// NewParseQuoteTask builds a parse task.
func NewParseQuoteTask(payload ParseQuotePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeParseQuote, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// QuoteParser extracts a structured quote from a raw document.
type QuoteParser interface {
	Parse(ctx context.Context, payload []byte, filename string) (docparse.ParsedQuote, error)
}

// QuoteApplier records a parsed offer against its invitation.
type QuoteApplier interface {
	ApplyParsedQuote(ctx context.Context, quoteID int64, amount float64, analysis sourcing.QuoteAnalysis) error
}

// NewParseQuoteHandler wires the parsing service to the sourcing workflow.
// Parser failures return an error so Asynq retries with backoff.
func NewParseQuoteHandler(parser QuoteParser, applier QuoteApplier, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ParseQuotePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		parsed, err := parser.Parse(ctx, payload.Content, payload.Filename)
		if err != nil {
			logger.Warn("parse quote document",
				slog.Int64("quote_id", payload.QuoteID),
				slog.Any("error", err))
			return err
		}
		if parsed.Confidence < minParseConfidence {
			logger.Info("parsed quote below confidence threshold, left for manual entry",
				slog.Int64("quote_id", payload.QuoteID),
				slog.Float64("confidence", parsed.Confidence))
			return nil
		}
		err = applier.ApplyParsedQuote(ctx, payload.QuoteID, parsed.Amount, sourcing.QuoteAnalysis{
			DeliveryWeeks: parsed.DeliveryWeeks,
			Terms:         parsed.Terms,
			Highlights:    parsed.Highlights,
		})
		if err != nil {
			logger.Warn("apply parsed quote",
				slog.Int64("quote_id", payload.QuoteID),
				slog.Any("error", err))
			return err
		}
		logger.Info("quote recorded from document",
			slog.Int64("quote_id", payload.QuoteID),
			slog.Float64("amount", parsed.Amount),
			slog.Float64("confidence", parsed.Confidence))
		return nil
	}
}
