package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/niksmo/solpay-checkout/config"
	"github.com/niksmo/solpay-checkout/internal/adapter/httphandler"
	"github.com/niksmo/solpay-checkout/internal/adapter/kafka"
	"github.com/niksmo/solpay-checkout/internal/adapter/metrics"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/niksmo/solpay-checkout/internal/core/service"
	"github.com/niksmo/solpay-checkout/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type serdes struct {
	checkout     schema.Serde
	confirmation schema.Serde
}

type events struct {
	producer      *kafka.CheckoutEventsProducer
	confirmations *kafka.ConfirmationsConsumer
}

// An App is the checkout process: the request-for-payment HTTP API plus the
// optional confirmations consumer.
type App struct {
	ctx        context.Context
	cfg        config.Config
	sec        kafka.Security
	serdes     serdes
	events     events
	metrics    *metrics.Metrics
	service    port.Checkouter
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	initLogger(cfg.LogLevel)
	app.metrics = metrics.New(prometheus.NewRegistry())

	if cfg.Broker.Enabled {
		app.initSecurity()
		app.initSerdes()
		app.initOutboundAdapters()
	}
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initSecurity() {
	const op = "App.initSecurity"

	sec, err := brokerSecurity(app.cfg)
	if err != nil {
		fallDown(op, err)
	}
	app.sec = sec
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"
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

func (app *App) initOutboundAdapters() {
	const op = "App.initOutboundAdapters"
	b := app.cfg.Broker

	producer, err := kafka.NewCheckoutEventsProducer(
		kafka.ProducerClientOpt(app.ctx, b.SeedBrokers, b.Topics.CheckoutRequests, app.sec),
		kafka.ProducerEncoderOpt(app.serdes.checkout),
	)
	if err != nil {
		fallDown(op, err)
	}
	app.events.producer = &producer
}

func (app *App) initCoreService() {
	const op = "App.initCoreService"
	cfg := app.cfg

	catalog, err := newCatalog(cfg.Products)
	if err != nil {
		fallDown(op, err)
	}

	if err := checkConfirmBudget(cfg); err != nil {
		fallDown(op, err)
	}

	shopKey := parseShopKey(cfg.Shop.PrivateKey)

	shop, err := shopAddress(cfg.Shop.Address, shopKey)
	if err != nil {
		fallDown(op, err)
	}

	paymentMint, err := parseKey("ledger.payment_mint", cfg.Ledger.PaymentMint)
	if err != nil {
		fallDown(op, err)
	}
	couponMint, err := parseKey("ledger.coupon_mint", cfg.Ledger.CouponMint)
	if err != nil {
		fallDown(op, err)
	}

	discountCfg, err := newDiscountConfig(cfg)
	if err != nil {
		fallDown(op, err)
	}

	builder := service.NewBuilder(
		dialLedger(cfg),
		service.NewDiscountEngine(discountCfg),
		service.BuilderConfig{
			Shop:        shop,
			PaymentMint: paymentMint,
			CouponMint:  couponMint,
		},
		shopKey,
	)

	var producer port.CheckoutEventsProducer
	if app.events.producer != nil {
		producer = app.events.producer
	}

	app.service = service.New(catalog, builder, producer, service.ServiceConfig{
		Descriptor:  domain.Descriptor{Label: cfg.Shop.Label, Icon: cfg.Shop.Icon},
		Shop:        shop,
		PaymentMint: paymentMint,
		LinkMessage: cfg.Shop.Message,
	})
}

func (app *App) initInboundAdapters() {
	const op = "App.initInboundAdapters"

	mux := http.NewServeMux()
	httphandler.RegisterCheckout(mux, app.service)
	mux.Handle("GET /metrics", app.metrics.Handler())

	handler := httphandler.AllowJSON(httphandler.Instrument(app.metrics, mux))
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTPServerAddr, handler, app.cfg.HTTPRequestTimeout,
	)

	if !app.cfg.Broker.Enabled {
		return
	}

	b := app.cfg.Broker
	consumer, err := kafka.NewConfirmationsConsumer(
		kafka.ConsumerClientOpt(
			b.SeedBrokers, b.Topics.PaymentConfirmations, b.Consumers.ConfirmationsGroup, app.sec,
		),
		kafka.ConsumerDecoderOpt(app.serdes.confirmation),
		kafka.ConsumerRecorderOpt(service.NewConfirmationLog(app.metrics)),
	)
	if err != nil {
		fallDown(op, err)
	}
	app.events.confirmations = &consumer
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	if app.events.confirmations != nil {
		go app.events.confirmations.Run(app.ctx)
	}

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	if app.events.confirmations != nil {
		app.events.confirmations.Close()
	}
	if app.events.producer != nil {
		app.events.producer.Close()
	}

	slog.Info("application is closed")
}

func newCatalog(ps []config.Product) (domain.Catalog, error) {
	products := make([]domain.Product, 0, len(ps))
	for _, p := range ps {
		native, err := domain.NewAmount(p.PriceNative)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("product %q native price: %w", p.ID, err)
		}
		stable, err := domain.NewAmount(p.PriceStable)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("product %q stable price: %w", p.ID, err)
		}
		products = append(products, domain.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			UnitName:    p.UnitName,
			PriceNative: native,
			PriceStable: stable,
		})
	}
	return domain.NewCatalog(products)
}

func newDiscountConfig(cfg config.Config) (service.DiscountConfig, error) {
	m, err := decimal.NewFromString(cfg.Discount.RedeemMultiplier)
	if err != nil {
		return service.DiscountConfig{}, fmt.Errorf("discount.redeem_multiplier: %w", err)
	}
	return service.DiscountConfig{
		Threshold:        cfg.Discount.Threshold,
		RedeemUnits:      cfg.Discount.RedeemUnits,
		AwardUnits:       cfg.Discount.AwardUnits,
		RedeemMultiplier: m,
	}, nil
}
