package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/niksmo/solpay-checkout/config"
	"github.com/niksmo/solpay-checkout/internal/adapter"
	"github.com/niksmo/solpay-checkout/internal/adapter/httphandler"
	"github.com/niksmo/solpay-checkout/internal/adapter/kafka"
	"github.com/niksmo/solpay-checkout/internal/adapter/ledger"
	"github.com/niksmo/solpay-checkout/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

func initLogger(level slog.Leveler) {
	opts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}

func brokerSecurity(cfg config.Config) (kafka.Security, error) {
	sec := kafka.Security{
		User: cfg.Broker.SASL.User,
		Pass: cfg.Broker.SASL.Pass,
	}
	if cfg.Broker.TLS.Enabled() {
		t := cfg.Broker.TLS
		tlsConfig, err := adapter.MakeTLSConfig(t.CA, t.Cert, t.Key)
		if err != nil {
			return kafka.Security{}, err
		}
		sec.TLSConfig = tlsConfig
	}
	return sec, nil
}

func newSchemaCreater(cfg config.Config, sec kafka.Security) (schema.SchemaCreater, error) {
	opts := []sr.ClientOpt{sr.URLs(cfg.Broker.SchemaRegistryURLs...)}
	if sec.TLSConfig != nil {
		opts = append(opts, sr.DialTLSConfig(sec.TLSConfig))
	}
	if sec.User != "" {
		opts = append(opts, sr.BasicAuth(sec.User, sec.Pass))
	}

	cl, err := sr.NewClient(opts...)
	if err != nil {
		return schema.SchemaCreater{}, err
	}
	return schema.NewSchemaCreater(cl), nil
}

type serdeConstructor func(context.Context, ...schema.Opt) (schema.Serde, error)

func newSerde(
	ctx context.Context, sc schema.SchemaIdentifier, topic string, fn serdeConstructor,
) (schema.Serde, error) {
	return fn(ctx,
		schema.SubjectOpt(schema.Subject(topic)),
		schema.SchemaIdentifierOpt(sc),
	)
}

func dialLedger(cfg config.Config) *ledger.Ledger {
	return ledger.Dial(cfg.Ledger.RPCEndpoint, ledger.Config{
		Commitment:      rpc.CommitmentType(cfg.Ledger.Commitment),
		SignatureLimit:  cfg.Ledger.SignatureLimit,
		ConfirmAttempts: cfg.Ledger.ConfirmAttempts,
		ConfirmDelay:    cfg.Ledger.ConfirmDelay,
	})
}

// checkConfirmBudget rejects a ledger confirm budget that a checkout
// request could not wait out before its own deadline.
func checkConfirmBudget(cfg config.Config) error {
	timeout := cfg.HTTPRequestTimeout
	if timeout <= 0 {
		timeout = httphandler.DefaultRequestTimeout
	}
	budget := cfg.Ledger.ConfirmBudget()
	if budget >= timeout {
		return fmt.Errorf(
			"ledger confirm budget %s must be below http_request_timeout %s",
			budget, timeout,
		)
	}
	return nil
}

// shopAddress returns the configured shop address. The signing key's
// public key stands in only when the address is unset.
func shopAddress(address string, key solana.PrivateKey) (solana.PublicKey, error) {
	if address != "" || key == nil {
		return parseKey("shop.address", address)
	}
	return key.PublicKey(), nil
}

func parseKey(name, s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is not set", name)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", name, err)
	}
	return pk, nil
}

// parseShopKey returns an empty key when the secret is absent or malformed.
// The builder then rejects every checkout with the credential error, while
// the descriptor and the payment link keep working.
func parseShopKey(secret string) solana.PrivateKey {
	const op = "app.parseShopKey"
	log := slog.With("op", op)

	if secret == "" {
		log.Warn("shop private key is not set")
		return nil
	}
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		log.Error("shop private key is malformed", "err", err)
		return nil
	}
	return key
}
