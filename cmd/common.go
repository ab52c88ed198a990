package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/digisign/certsign/crypto"
	"github.com/digisign/certsign/curve"
	"github.com/digisign/certsign/keys"
	"github.com/digisign/certsign/payload"
	"github.com/digisign/certsign/signer"
)

// Commands returns every certsign command.
func Commands() []*cli.Command {
	return []*cli.Command{
		KeygenCommand(),
		PayloadCommand(),
		SignCommand(),
		VerifyCommand(),
		QRCommand(),
		ScanCommand(),
		HashCommand(),
		BundleCommand(),
	}
}

// GlobalFlags returns the flags shared by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Enable debug logging",
			Sources: cli.EnvVars("CERTSIGN_VERBOSE"),
		},
		&cli.BoolFlag{
			Name:    "strict",
			Usage:   "Reject unknown algorithm identifiers instead of using the default",
			Sources: cli.EnvVars("CERTSIGN_STRICT"),
		},
		&cli.StringFlag{
			Name:    "default-algorithm",
			Usage:   "Algorithm used in place of unknown identifiers",
			Value:   crypto.ECDSASHA128.String(),
			Sources: cli.EnvVars("CERTSIGN_DEFAULT_ALGORITHM"),
		},
		&cli.StringFlag{
			Name:    "key-dir",
			Usage:   "Key storage directory (default ~/.config/certsign/keys)",
			Sources: cli.EnvVars("CERTSIGN_KEY_DIR"),
		},
		&cli.BoolFlag{
			Name:    "metrics",
			Usage:   "Print signing metrics to stderr when the command finishes",
			Sources: cli.EnvVars("CERTSIGN_METRICS"),
		},
	}
}

func algorithmFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "algorithm",
		Aliases: []string{"a"},
		Usage:   "Signature algorithm (ecdsa_blake2b, ecdsa_no_hash, ecdsa_sha128_blake2b, ecdsa_sha128)",
		Value:   crypto.ECDSASHA128.String(),
		Sources: cli.EnvVars("CERTSIGN_ALGORITHM"),
	}
}

func keyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "key",
			Usage:   "Name of a stored key pair",
			Sources: cli.EnvVars("CERTSIGN_KEY"),
		},
		&cli.StringFlag{
			Name:    "private-key",
			Usage:   "Decimal private key (used when --key is not set)",
			Sources: cli.EnvVars("CERTSIGN_PRIVATE_KEY"),
		},
	}
}

func metadataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "metadata",
			Usage: "Path to a JSON file with the certificate metadata",
		},
		&cli.StringFlag{
			Name:  "holder",
			Usage: "Certificate holder name",
		},
		&cli.StringFlag{
			Name:  "event",
			Usage: "Event name",
		},
		&cli.StringFlag{
			Name:  "issue-date",
			Usage: "Issue date (YYYY-MM-DD)",
		},
		&cli.StringFlag{
			Name:    "signer",
			Usage:   "Signer name",
			Sources: cli.EnvVars("CERTSIGN_SIGNER_NAME"),
		},
		&cli.StringFlag{
			Name:    "position",
			Usage:   "Signer position",
			Sources: cli.EnvVars("CERTSIGN_SIGNER_POSITION"),
		},
		&cli.StringFlag{
			Name:  "timestamp",
			Usage: "Signing time (defaults to now)",
		},
	}
}

// session bundles the per-invocation service, logger and metrics registry.
type session struct {
	svc      *signer.Service
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  bool
}

func newSession(cmd *cli.Command) (*session, error) {
	logger := newLogger(errOutput(cmd), cmd.Bool("verbose"))

	defaultAlg, err := crypto.ParseAlgorithm(cmd.String("default-algorithm"))
	if err != nil {
		return nil, fmt.Errorf("invalid default algorithm: %w", err)
	}

	cfg := signer.DefaultConfig()
	cfg.DefaultAlgorithm = defaultAlg
	cfg.StrictAlgorithms = cmd.Bool("strict")

	reg := prometheus.NewRegistry()
	return &session{
		svc:      signer.New(cfg, logger, signer.NewMetrics(reg)),
		logger:   logger,
		registry: reg,
		metrics:  cmd.Bool("metrics"),
	}, nil
}

// close flushes the logger and prints metrics if requested.
func (s *session) close(cmd *cli.Command) {
	_ = s.logger.Sync()
	if !s.metrics {
		return
	}

	families, err := s.registry.Gather()
	if err != nil {
		fmt.Fprintf(errOutput(cmd), "failed to gather metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(errOutput(cmd), mf); err != nil {
			return
		}
	}
}

// newLogger writes JSON logs at warn level, or console logs at debug level
// when verbose is set.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	if verbose {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel))
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.WarnLevel))
}

func keyStore(cmd *cli.Command) (*keys.Store, error) {
	if dir := cmd.String("key-dir"); dir != "" {
		return keys.NewStore(dir), nil
	}
	return keys.DefaultStore()
}

// loadKeyPair returns the stored key named by --key, or the pair derived from
// --private-key.
func loadKeyPair(cmd *cli.Command) (signer.KeyPair, error) {
	if name := cmd.String("key"); name != "" {
		store, err := keyStore(cmd)
		if err != nil {
			return signer.KeyPair{}, err
		}
		return store.Load(name)
	}

	privateKey := cmd.String("private-key")
	if privateKey == "" {
		return signer.KeyPair{}, errors.New("either --key or --private-key must be provided")
	}

	priv, err := crypto.ParsePrivateKey(curve.Certificate(), privateKey)
	if err != nil {
		return signer.KeyPair{}, fmt.Errorf("failed to parse private key: %w", err)
	}
	return signer.KeyPair{
		PrivateKey: crypto.FormatPrivateKey(priv),
		PublicKey:  crypto.FormatPublicKey(&priv.PublicKey),
	}, nil
}

// readMetadata loads --metadata and lets the individual flags override it.
func readMetadata(cmd *cli.Command) (payload.Metadata, error) {
	var m payload.Metadata

	if path := cmd.String("metadata"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return m, fmt.Errorf("failed to read metadata file: %w", err)
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return m, fmt.Errorf("failed to parse metadata file: %w", err)
		}
	}

	overrides := []struct {
		flag  string
		field *string
	}{
		{"holder", &m.HolderName},
		{"event", &m.EventName},
		{"issue-date", &m.IssueDate},
		{"signer", &m.SignerName},
		{"position", &m.SignerPosition},
		{"timestamp", &m.Timestamp},
	}
	for _, o := range overrides {
		if v := cmd.String(o.flag); v != "" {
			*o.field = v
		}
	}

	return m, nil
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errOutput(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func writeJSON(cmd *cli.Command, v interface{}) error {
	jsonOutput, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(output(cmd), string(jsonOutput))
	return nil
}
