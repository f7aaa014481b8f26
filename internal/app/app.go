package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/daramaccoille/crashalert/internal/config"
	"github.com/daramaccoille/crashalert/internal/indicator"
	"github.com/daramaccoille/crashalert/internal/market"
	"github.com/daramaccoille/crashalert/internal/metrics"
	"github.com/daramaccoille/crashalert/internal/notify"
	"github.com/daramaccoille/crashalert/internal/scheduler"
	"github.com/daramaccoille/crashalert/internal/sentiment"
	"github.com/daramaccoille/crashalert/internal/server"
	"github.com/daramaccoille/crashalert/internal/service"
	"github.com/daramaccoille/crashalert/internal/storage"
)

// FRED series identifiers for the scored indicators.
const (
	seriesVIX           = "VIXCLS"
	seriesLongYield     = "DGS10"
	seriesShortYield    = "DGS2"
	seriesJunkSpread    = "BAMLH0A0HYM2"
	seriesCFNAI         = "CFNAI"
	seriesLiquidity     = "WALCL"
	seriesOneMonthAhead = "JLNUM1M"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSources() market.Sources {
	fred := indicator.NewFREDClient(indicator.FREDOptions{
		APIKey:  a.Config.Sources.FRED.APIKey,
		BaseURL: a.Config.Sources.FRED.BaseURL,
		Timeout: a.Config.Sources.FRED.RequestTimeout,
	}, a.Logger)

	alpha := indicator.NewAlphaVantage(indicator.AlphaVantageOptions{
		APIKey:         a.Config.Sources.AlphaVantage.APIKey,
		BaseURL:        a.Config.Sources.AlphaVantage.BaseURL,
		Timeout:        a.Config.Sources.AlphaVantage.RequestTimeout,
		RequestsPerMin: a.Config.Sources.AlphaVantage.RequestsPerMin,
	}, a.Logger)

	scraper := indicator.NewValuationScraper(indicator.ValuationOptions{
		URL:       a.Config.Sources.Valuation.URL,
		Timeout:   a.Config.Sources.Valuation.RequestTimeout,
		UserAgent: a.Config.Sources.Valuation.UserAgent,
	}, a.Logger)

	symbol := a.Config.Sources.AlphaVantage.BenchmarkSymbol
	fallbacks := market.DefaultFallbacks()

	latest := func(series string) market.SourceFunc {
		return func(ctx context.Context) (float64, error) {
			obs, err := fred.Latest(ctx, series)
			if err != nil {
				return 0, err
			}
			return obs.Value, nil
		}
	}

	return market.Sources{
		VIX:           latest(seriesVIX),
		LongYield:     latest(seriesLongYield),
		ShortYield:    latest(seriesShortYield),
		JunkSpread:    latest(seriesJunkSpread),
		CFNAI:         latest(seriesCFNAI),
		LiquidityMM:   latest(seriesLiquidity),
		OneMonthAhead: latest(seriesOneMonthAhead),
		Valuation: func(ctx context.Context) (float64, error) {
			return scraper.ScrapePE(ctx)
		},

		// No clean free feed exists for these two; they are pinned to the
		// curated defaults until a provider is wired in.
		MarginDebt:      market.StaticSource(fallbacks.MarginDebt),
		InsiderActivity: market.StaticSource(fallbacks.InsiderActivity),

		BenchmarkQuote: func(ctx context.Context) (float64, error) {
			return alpha.GlobalQuote(ctx, symbol)
		},
		BenchmarkHistory: func(ctx context.Context) ([]float64, error) {
			return alpha.DailyCloses(ctx, symbol, "full")
		},
	}
}

func (a *App) newSummarizer() service.Summarizer {
	if a.Config.Sentiment.APIKey == "" {
		a.Logger.Warn().Msg("sentiment.api_key not configured; narratives will use the static fallback")
	}
	return sentiment.NewGenerator(sentiment.Options{
		APIKey:  a.Config.Sentiment.APIKey,
		BaseURL: a.Config.Sentiment.BaseURL,
		Model:   a.Config.Sentiment.Model,
		Timeout: a.Config.Sentiment.RequestTimeout,
	}, a.Logger)
}

func (a *App) newMailer() notify.Mailer {
	return notify.NewBrevoMailer(notify.MailerOptions{
		APIKey:        a.Config.Email.APIKey,
		BaseURL:       a.Config.Email.BaseURL,
		SenderName:    a.Config.Email.SenderName,
		SenderAddress: a.Config.Email.SenderAddress,
		Timeout:       a.Config.Email.RequestTimeout,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store, meters *metrics.Metrics, withScheduler bool) *service.Service {
	var sched *scheduler.Scheduler
	if withScheduler {
		sched = scheduler.New(scheduler.Options{
			Interval:     a.Config.Scheduler.Interval,
			AlignToStart: a.Config.Scheduler.AlignToBucket,
			StartupDelay: a.Config.Scheduler.StartupDelay,
		}, a.Logger)
	}

	mailer := a.newMailer()
	composer := notify.NewComposer(a.Config.Dispatch.Subject)

	return service.New(a.Config, service.Deps{
		Scheduler:  sched,
		Collector:  market.NewCollector(a.newSources(), market.DefaultFallbacks(), a.Logger),
		Summarizer: a.newSummarizer(),
		Snapshots:  store,
		Directory:  store,
		Dispatcher: notify.NewDispatcher(mailer, composer, a.Config.Dispatch.BatchSize, a.Logger),
		Composer:   composer,
		Mailer:     mailer,
		Metrics:    meters,
	}, a.Logger)
}

// Run executes the long-running aggregation service alongside the HTTP
// trigger endpoint.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to run the service")
	}
	defer closeStore()

	meters := metrics.New()
	svc := a.newService(store, meters, true)
	srv := server.New(a.Config.Server.Addr, svc, meters, a.Logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.ListenAndServe(ctx)
	}()
	go func() {
		errCh <- svc.Run(ctx)
	}()

	a.Logger.Info().Msg("starting aggregation service")
	err = <-errCh
	cancel()
	if second := <-errCh; err == nil {
		err = second
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("aggregation service stopped")
	return nil
}

// ExportOptions hold parameters for exporting snapshot history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
