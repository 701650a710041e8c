package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/niksmo/solpay-checkout/config"
	"github.com/niksmo/solpay-checkout/internal/adapter/httphandler"
	"github.com/niksmo/solpay-checkout/internal/adapter/kafka"
	"github.com/niksmo/solpay-checkout/internal/adapter/metrics"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/niksmo/solpay-checkout/internal/core/service"
	"github.com/niksmo/solpay-checkout/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
)

// A WatcherApp polls the ledger for every published checkout and emits the
// terminal result to the confirmations topic.
type WatcherApp struct {
	ctx        context.Context
	cfg        config.Config
	sec        kafka.Security
	serdes     serdes
	metrics    *metrics.Metrics
	emitter    port.ConfirmationEmitter
	watcher    *service.Watcher
	processor  port.CheckoutEventsProcessor
	httpServer httphandler.HTTPServer
}

func NewWatcher(ctx context.Context, cfg config.Config) *WatcherApp {
	app := &WatcherApp{ctx: ctx, cfg: cfg}

	initLogger(cfg.LogLevel)
	app.metrics = metrics.New(prometheus.NewRegistry())

	app.initSecurity()
	app.initSerdes()
	app.initOutboundAdapters()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *WatcherApp) initSecurity() {
	const op = "WatcherApp.initSecurity"

	sec, err := brokerSecurity(app.cfg)
	if err != nil {
		fallDown(op, err)
	}
	app.sec = sec
}

func (app *WatcherApp) initSerdes() {
	const op = "WatcherApp.initSerdes"
	topics := app.cfg.Broker.Topics

	schemaCreater, err := newSchemaCreater(app.cfg, app.sec)
	if err != nil {
		fallDown(op, err)
	}

	checkoutSerde, err := newSerde(
		app.ctx, schemaCreater, topics.CheckoutRequests,
		schema.NewSerdeCheckoutEventV1,
	)
	if err != nil {
		fallDown(op, err)
	}

	confirmationSerde, err := newSerde(
		app.ctx, schemaCreater, topics.PaymentConfirmations,
		schema.NewSerdeConfirmationEventV1,
	)
	if err != nil {
		fallDown(op, err)
	}

	app.serdes.checkout = checkoutSerde
	app.serdes.confirmation = confirmationSerde
}

func (app *WatcherApp) initOutboundAdapters() {
	const op = "WatcherApp.initOutboundAdapters"
	b := app.cfg.Broker

	emitter, err := kafka.NewConfirmationEmitter(
		b.SeedBrokers, b.Topics.PaymentConfirmations, app.serdes.confirmation, app.sec,
	)
	if err != nil {
		fallDown(op, err)
	}
	app.emitter = emitter
}

func (app *WatcherApp) initCoreService() {
	l := app.cfg.Ledger

	poller := service.NewPoller(dialLedger(app.cfg), app.metrics, service.PollerConfig{
		Interval:         l.PollInterval,
		ResumeOnMismatch: l.ResumeOnMismatch,
	})
	app.watcher = service.NewWatcher(poller, app.emitter, l.WatchTimeout, l.WatchLimit)
}

func (app *WatcherApp) initInboundAdapters() {
	const op = "WatcherApp.initInboundAdapters"
	b := app.cfg.Broker

	processor, err := kafka.NewCheckoutWatchProcessor(
		b.SeedBrokers,
		b.Topics.CheckoutRequests,
		b.Consumers.WatcherGroup,
		app.serdes.checkout,
		app.watcher,
		app.sec,
	)
	if err != nil {
		fallDown(op, err)
	}
	app.processor = processor

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", app.metrics.Handler())
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTPServerAddr,
		httphandler.Instrument(app.metrics, mux),
		app.cfg.HTTPRequestTimeout,
	)
}

func (app *WatcherApp) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)
	go func() {
		defer stopFn()
		app.processor.Run(app.ctx)
	}()

	slog.Info("watcher is running")
}

// Close stops taking new checkouts first, then waits for running polls,
// which end on the cancelled context, and only then closes the emitter.
func (app *WatcherApp) Close(ctx context.Context) {
	slog.Info("watcher is closing...")

	app.processor.Close()
	app.watcher.Wait()
	app.emitter.Close()
	app.httpServer.Close(ctx)

	slog.Info("watcher is closed")
}
