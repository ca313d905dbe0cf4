// zeppsleep exports sleep data from the unofficial Mi Fit/Zepp API,
// writes a CSV, and optionally emails a report with an AI-generated
// weekly narrative. It is meant to run periodically from a scheduler;
// every invocation is one independent pipeline run.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/config"
	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/llm"
	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/mail"
	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/pipeline"
	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/telemetry"
	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/zepp"
)

var (
	days       int
	timezone   string
	csvPath    string
	reportPath string
	noAI       bool
	noEmail    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "zeppsleep",
	Short: "Export Mi Fit/Zepp sleep data and email a weekly report",
	Long: `zeppsleep logs in to the unofficial Huami/Zepp cloud API, downloads
per-day sleep summaries for a calendar window, and normalizes them into
per-day rows (deep/light/REM/wake minutes, start/stop, naps).

By default the window is the previous complete Monday-Sunday week in the
configured civil timezone. Rows are exported to CSV, printed as a table,
optionally summarized by OpenAI, and optionally emailed via SMTP.

Credentials come from the environment (or .env): ZEPPEMAIL and
ZEPP_PASSWORD are required; OPENAI_API_KEY, SMTP_* and MAIL_* enable the
optional collaborators.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().IntVar(&days, "days", 0, "use a last-N-days window instead of the previous complete week")
	rootCmd.Flags().StringVar(&timezone, "timezone", "", "civil timezone for windows and timestamps (default from SLEEP_TZ)")
	rootCmd.Flags().StringVar(&csvPath, "out", "sleep_export.csv", "CSV export path")
	rootCmd.Flags().StringVar(&reportPath, "report", "sleep_report_ai.md", "markdown report path (written only when a narrative exists)")
	rootCmd.Flags().BoolVar(&noAI, "no-ai", false, "skip the AI narrative")
	rootCmd.Flags().BoolVar(&noEmail, "no-email", false, "skip email delivery")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}

	logger := newLogger(cfg.LogLevel, verbose)
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()

	shutdown, err := telemetry.InitTracer(ctx, cfg.OTLPTracesEndpoint, "zeppsleep")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdown(ctx) //nolint:errcheck
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	client := zepp.NewClient(logger, loc)

	var narrator pipeline.Narrator
	if !noAI {
		if c := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel); c != nil {
			narrator = c
		} else {
			logger.Info("OPENAI_API_KEY not set, skipping AI narrative")
		}
	}

	var sender pipeline.Sender
	if !noEmail {
		if cfg.SMTPHost != "" && cfg.MailTo != "" {
			sender = mail.New(mail.Config{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Username: cfg.SMTPUser,
				Password: cfg.SMTPPassword,
				From:     cfg.MailFrom,
				To:       cfg.MailTo,
			}, logger)
		} else {
			logger.Info("SMTP_HOST or MAIL_TO not set, skipping email delivery")
		}
	}

	p := pipeline.New(logger, client, client, narrator, sender)
	return p.Run(ctx, pipeline.Options{
		Days:       days,
		CSVPath:    csvPath,
		ReportPath: reportPath,
		Email:      cfg.ZeppEmail,
		Password:   cfg.ZeppPassword,
		Timezone:   cfg.Timezone,
	})
}

func newLogger(level string, verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
