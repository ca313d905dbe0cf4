// Package pipeline runs one export end to end: window resolution,
// vendor login, band-data retrieval, then the reporting collaborators.
// Each run is a fresh, strictly sequential pipeline with no state shared
// across invocations.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/domain"
	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/report"
	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/window"
)

// Authenticator performs the vendor credential handshake.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.Credential, error)
}

// SleepFetcher retrieves normalized sleep records for a date range.
type SleepFetcher interface {
	BandData(ctx context.Context, cred domain.Credential, from, to string) ([]domain.SleepRecord, error)
}

// Narrator produces the optional AI narrative. A nil Narrator or any
// error means "no narrative"; it can never fail the run.
type Narrator interface {
	WeeklyReport(ctx context.Context, records []domain.SleepRecord, windowLabel string) (string, error)
}

// Sender delivers the finished report. A nil Sender or any error is a
// logged warning, never a run failure.
type Sender interface {
	Send(subject, body string, attachments []string) error
}

// Options selects the window and output destinations for one run.
type Options struct {
	// Days > 0 selects a last-N-days window; otherwise the previous
	// complete Monday-Sunday week is used.
	Days        int
	CSVPath     string
	ReportPath  string
	Email       string
	Password    string
	Timezone    string
	TableWriter io.Writer
}

type Pipeline struct {
	logger   *zap.Logger
	auth     Authenticator
	fetcher  SleepFetcher
	narrator Narrator
	sender   Sender
	tracer   trace.Tracer
	now      func() time.Time
}

func New(logger *zap.Logger, auth Authenticator, fetcher SleepFetcher, narrator Narrator, sender Sender) *Pipeline {
	return &Pipeline{
		logger:   logger,
		auth:     auth,
		fetcher:  fetcher,
		narrator: narrator,
		sender:   sender,
		tracer:   otel.Tracer("zeppsleep/pipeline"),
		now:      time.Now,
	}
}

// Run executes the pipeline once. Configuration, rate-limit, protocol,
// and transport errors are fatal and returned; narrative and delivery
// failures are confined to warnings.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	ctx, span := p.tracer.Start(ctx, "export", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", opts.Timezone, err)
	}

	rng, err := p.resolveWindow(opts, loc)
	if err != nil {
		return err
	}
	logger.Info("window resolved",
		zap.String("from", rng.From),
		zap.String("to", rng.To),
		zap.String("timezone", opts.Timezone),
	)

	cred, err := p.login(ctx, logger, opts)
	if err != nil {
		return err
	}

	records, err := p.fetch(ctx, cred, rng)
	if err != nil {
		return err
	}
	logger.Info("records fetched", zap.Int("rows", len(records)))

	return p.publish(ctx, logger, records, rng, opts)
}

func (p *Pipeline) resolveWindow(opts Options, loc *time.Location) (window.Range, error) {
	if opts.Days > 0 {
		return window.LastNDays(p.now(), opts.Days, loc)
	}
	return window.LastCompleteWeek(p.now(), loc), nil
}

func (p *Pipeline) login(ctx context.Context, logger *zap.Logger, opts Options) (domain.Credential, error) {
	ctx, span := p.tracer.Start(ctx, "authenticate")
	defer span.End()

	logger.Info("authenticating")
	cred, err := p.auth.Login(ctx, opts.Email, opts.Password)
	if err != nil {
		span.RecordError(err)
		return domain.Credential{}, err
	}
	return cred, nil
}

func (p *Pipeline) fetch(ctx context.Context, cred domain.Credential, rng window.Range) ([]domain.SleepRecord, error) {
	ctx, span := p.tracer.Start(ctx, "fetch",
		trace.WithAttributes(attribute.String("from", rng.From), attribute.String("to", rng.To)))
	defer span.End()

	records, err := p.fetcher.BandData(ctx, cred, rng.From, rng.To)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return records, nil
}

func (p *Pipeline) publish(ctx context.Context, logger *zap.Logger, records []domain.SleepRecord, rng window.Range, opts Options) error {
	ctx, span := p.tracer.Start(ctx, "report", trace.WithAttributes(attribute.Int("rows", len(records))))
	defer span.End()

	if err := report.WriteCSV(opts.CSVPath, records); err != nil {
		span.RecordError(err)
		return err
	}
	logger.Info("csv written", zap.String("path", opts.CSVPath), zap.Int("rows", len(records)))

	tableOut := opts.TableWriter
	if tableOut == nil {
		tableOut = os.Stdout
	}
	report.RenderTable(tableOut, records)

	label := rng.Label()
	narrative := p.narrate(ctx, logger, records, label)

	attachments := []string{opts.CSVPath}
	if narrative != "" {
		if err := report.WriteMarkdown(opts.ReportPath, label, narrative); err != nil {
			// The narrative still travels in the email body; losing the
			// file copy is not worth failing the run.
			logger.Warn("could not write markdown report", zap.Error(err))
		} else {
			attachments = append(attachments, opts.ReportPath)
		}
	}

	p.deliver(logger, records, narrative, label, attachments, opts)
	return nil
}

func (p *Pipeline) narrate(ctx context.Context, logger *zap.Logger, records []domain.SleepRecord, label string) string {
	if p.narrator == nil || len(records) == 0 {
		return ""
	}

	ctx, span := p.tracer.Start(ctx, "narrate")
	defer span.End()

	narrative, err := p.narrator.WeeklyReport(ctx, records, label)
	if err != nil {
		span.RecordError(err)
		logger.Warn("ai narrative unavailable", zap.Error(err))
		return ""
	}
	logger.Info("ai narrative generated", zap.Int("chars", len(narrative)))
	return narrative
}

func (p *Pipeline) deliver(logger *zap.Logger, records []domain.SleepRecord, narrative, label string, attachments []string, opts Options) {
	if p.sender == nil {
		return
	}

	subject := fmt.Sprintf("Zepp sleep report — %s", label)
	body := narrative
	if body == "" {
		body = fmt.Sprintf("(No AI analysis)\nExported %d rows for %s.", len(records), label)
	}

	if err := p.sender.Send(subject, body, attachments); err != nil {
		logger.Warn("email delivery failed", zap.Error(err))
		return
	}
}
