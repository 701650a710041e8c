package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/lovoo/goka"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

// A Security holds the optional broker connection security.
// Zero value means plaintext without authentication.
type Security struct {
	TLSConfig *tls.Config
	User      string
	Pass      string
}

func (s Security) kgoOpts() []kgo.Opt {
	var opts []kgo.Opt
	if s.TLSConfig != nil {
		opts = append(opts, kgo.DialTLSConfig(s.TLSConfig))
	}
	if s.User != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: s.User,
			Pass: s.Pass,
		}.AsMechanism()))
	}
	return opts
}

// applySASLTLS installs the security settings into the goka global config
// used by processors and emitters created afterwards.
func applySASLTLS(s Security) {
	if s.TLSConfig == nil && s.User == "" {
		return
	}

	cfg := goka.DefaultConfig()
	if s.TLSConfig != nil {
		cfg.Net.TLS.Enable = true
		cfg.Net.TLS.Config = s.TLSConfig
	}
	if s.User != "" {
		cfg.Net.SASL.Enable = true
		cfg.Net.SASL.User = s.User
		cfg.Net.SASL.Password = s.Pass
	}
	goka.ReplaceGlobalConfig(cfg)
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}
