package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "CHECKOUT_CONFIG_FILE"
	shopKeyEnvName    = "SHOP_PRIVATE_KEY"
)

type shop struct {
	Label      string `mapstructure:"label"`
	Icon       string `mapstructure:"icon"`
	Address    string `mapstructure:"address"`
	PrivateKey string `mapstructure:"private_key"`
	Message    string `mapstructure:"message"`
}

type ledger struct {
	RPCEndpoint      string        `mapstructure:"rpc_endpoint"`
	Commitment       string        `mapstructure:"commitment"`
	PaymentMint      string        `mapstructure:"payment_mint"`
	CouponMint       string        `mapstructure:"coupon_mint"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	WatchTimeout     time.Duration `mapstructure:"watch_timeout"`
	WatchLimit       int           `mapstructure:"watch_limit"`
	ResumeOnMismatch bool          `mapstructure:"resume_on_mismatch"`
	SignatureLimit   int           `mapstructure:"signature_limit"`
	ConfirmAttempts  int           `mapstructure:"confirm_attempts"`
	ConfirmDelay     time.Duration `mapstructure:"confirm_delay"`
}

// ConfirmBudget is the longest a request may wait for a ledger confirmation.
func (l ledger) ConfirmBudget() time.Duration {
	return time.Duration(l.ConfirmAttempts) * l.ConfirmDelay
}

type discount struct {
	Threshold        uint64 `mapstructure:"threshold"`
	RedeemUnits      uint64 `mapstructure:"redeem_units"`
	AwardUnits       uint64 `mapstructure:"award_units"`
	RedeemMultiplier string `mapstructure:"redeem_multiplier"`
}

// Product prices are decimal strings, floats would lose minor units.
type Product struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	UnitName    string `mapstructure:"unit_name"`
	PriceNative string `mapstructure:"price_native"`
	PriceStable string `mapstructure:"price_stable"`
}

type topics struct {
	CheckoutRequests     string `mapstructure:"checkout_requests"`
	PaymentConfirmations string `mapstructure:"payment_confirmations"`
}

type consumers struct {
	WatcherGroup       string `mapstructure:"watcher_group"`
	ConfirmationsGroup string `mapstructure:"confirmations_group"`
}

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

// Enabled reports whether all the files are set.
func (t tlsFiles) Enabled() bool {
	return t.CA != "" && t.Cert != "" && t.Key != ""
}

type sasl struct {
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

type broker struct {
	Enabled            bool      `mapstructure:"enabled"`
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
	TLS                tlsFiles  `mapstructure:"tls"`
	SASL               sasl      `mapstructure:"sasl"`
}

type Config struct {
	LogLevel           slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr     string        `mapstructure:"http_server_addr"`
	HTTPRequestTimeout time.Duration `mapstructure:"http_request_timeout"`
	Shop               shop          `mapstructure:"shop"`
	Ledger             ledger        `mapstructure:"ledger"`
	Discount           discount      `mapstructure:"discount"`
	Products           []Product     `mapstructure:"products"`
	Broker             broker        `mapstructure:"broker"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":3000")
	v.SetDefault("http_request_timeout", "30s")

	v.SetDefault("shop.label", "Beers Inc")
	v.SetDefault("shop.icon", "https://freesvg.org/img/beer1.png")
	v.SetDefault("shop.address", "")
	v.SetDefault("shop.private_key", "")
	v.SetDefault("shop.message", "Thanks for your order!")

	v.SetDefault("ledger.rpc_endpoint", "https://api.devnet.solana.com")
	v.SetDefault("ledger.commitment", "confirmed")
	v.SetDefault("ledger.payment_mint", "Gh9ZwEmdLJ8DscKNTkTqPbNwLNNBjuSzaG9Vp2KGtKJr")
	v.SetDefault("ledger.coupon_mint", "")
	v.SetDefault("ledger.poll_interval", "500ms")
	v.SetDefault("ledger.watch_timeout", "10m")
	v.SetDefault("ledger.watch_limit", 256)
	v.SetDefault("ledger.resume_on_mismatch", false)
	v.SetDefault("ledger.signature_limit", 1000)
	v.SetDefault("ledger.confirm_attempts", 40)
	v.SetDefault("ledger.confirm_delay", "500ms")

	v.SetDefault("discount.threshold", 5)
	v.SetDefault("discount.redeem_units", 5)
	v.SetDefault("discount.award_units", 1)
	v.SetDefault("discount.redeem_multiplier", "0.5")

	v.SetDefault("products", []map[string]any{
		{
			"id":           "pack-of-beer",
			"name":         "Pack of beer",
			"description":  "A six pack of the house lager",
			"unit_name":    "pack",
			"price_native": "0.05",
			"price_stable": "5",
		},
		{
			"id":           "barrel-of-beer",
			"name":         "Barrel of beer",
			"description":  "A full barrel for the party",
			"unit_name":    "barrel",
			"price_native": "0.1",
			"price_stable": "10",
		},
	})

	v.SetDefault("broker.enabled", false)
	v.SetDefault("broker.seed_brokers", []string{"127.0.0.1:9094"})
	v.SetDefault("broker.schema_registry_urls", []string{"http://127.0.0.1:8081"})
	v.SetDefault("broker.topics.checkout_requests", "checkout_requests")
	v.SetDefault("broker.topics.payment_confirmations", "payment_confirmations")
	v.SetDefault("broker.consumers.watcher_group", "checkout-watcher")
	v.SetDefault("broker.consumers.confirmations_group", "checkout-confirmations")
	v.SetDefault("broker.tls.ca", "")
	v.SetDefault("broker.tls.cert", "")
	v.SetDefault("broker.tls.key", "")
	v.SetDefault("broker.sasl.user", "")
	v.SetDefault("broker.sasl.pass", "")
}

func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads the config at path over the defaults. A missing file
// leaves the defaults and the environment in effect.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := v.BindEnv("shop.private_key", shopKeyEnvName); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	HTTPRequestTimeout=%q

	Shop:
	Label=%q
	Icon=%q
	Address=%q
	PrivateKey=%q
	Message=%q

	Ledger:
	RPCEndpoint=%q
	Commitment=%q
	PaymentMint=%q
	CouponMint=%q
	PollInterval=%q
	WatchTimeout=%q
	WatchLimit=%d
	ResumeOnMismatch=%t
	SignatureLimit=%d
	ConfirmAttempts=%d
	ConfirmDelay=%q

	Discount:
	Threshold=%d
	RedeemUnits=%d
	AwardUnits=%d
	RedeemMultiplier=%q

	Products=%d

	BrokerConfig:
	Enabled=%t
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topics:
		CheckoutRequests=%q
		PaymentConfirmations=%q
	Consumers:
		WatcherGroup=%q
		ConfirmationsGroup=%q
	TLS=%t
	SASLUser=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.HTTPRequestTimeout,
		c.Shop.Label,
		c.Shop.Icon,
		c.Shop.Address,
		mask(c.Shop.PrivateKey),
		c.Shop.Message,
		c.Ledger.RPCEndpoint,
		c.Ledger.Commitment,
		c.Ledger.PaymentMint,
		c.Ledger.CouponMint,
		c.Ledger.PollInterval,
		c.Ledger.WatchTimeout,
		c.Ledger.WatchLimit,
		c.Ledger.ResumeOnMismatch,
		c.Ledger.SignatureLimit,
		c.Ledger.ConfirmAttempts,
		c.Ledger.ConfirmDelay,
		c.Discount.Threshold,
		c.Discount.RedeemUnits,
		c.Discount.AwardUnits,
		c.Discount.RedeemMultiplier,
		len(c.Products),
		c.Broker.Enabled,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.Topics.CheckoutRequests,
		c.Broker.Topics.PaymentConfirmations,
		c.Broker.Consumers.WatcherGroup,
		c.Broker.Consumers.ConfirmationsGroup,
		c.Broker.TLS.Enabled(),
		c.Broker.SASL.User,
	)
}
