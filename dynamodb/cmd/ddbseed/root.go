package main

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/acksell/ddbseed/dynamodb/awsconf"
	"github.com/acksell/ddbseed/dynamodb/ddbiface"
	"github.com/acksell/ddbseed/dynamodb/ddbstore"
	"github.com/acksell/ddbseed/dynamodb/schema"
	"github.com/acksell/ddbseed/dynamodb/table"
)

func NewRootCommand() *cobra.Command {
	var s settings
	rc := &cobra.Command{
		Use:   "ddbseed",
		Short: "Provision DynamoDB tables and load a dataset into them.",
		Long: `ddbseed creates the tables of a catalog (--operation create) and writes a
dataset into them in batches (--operation upload).

Flags can also be set through DDBSEED_* environment variables, a .env file
or a ddbseed.yaml configuration file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setAllConfig(viper.New(), cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), s, cmd.OutOrStdout())
		},
	}
	registerFlags(rc.Flags(), &s)
	return rc
}

// runEnv is what an operation works with.
type runEnv struct {
	settings settings
	logger   *zap.Logger
	client   ddbiface.Client
	catalog  *table.Catalog
	out      io.Writer
}

func run(ctx context.Context, s settings, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Operation == "" {
		return errors.New(`required flag "operation" not set`)
	}
	op, err := lookupOperation(s.Operation)
	if err != nil {
		return err
	}

	logger, err := newLogger(s.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("run_id", uuid.NewString()), zap.String("operation", s.Operation))

	catalog, err := loadCatalog(s.Catalog)
	if err != nil {
		return err
	}

	env := &runEnv{settings: s, logger: logger, catalog: catalog, out: out}
	closeClient, err := env.connect(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	return op(ctx, env)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	l, err := cfg.Build()
	return l, errors.Wrap(err, "building logger")
}

func loadCatalog(path string) (*table.Catalog, error) {
	if path == "" {
		return schema.Default(), nil
	}
	c, err := schema.ParseFile(path)
	return c, errors.Wrapf(err, "catalog %q", path)
}

// connect sets env.client to either the embedded store or a DynamoDB client.
func (env *runEnv) connect(ctx context.Context) (func(), error) {
	s := env.settings
	if s.Memory || s.LocalDB != "" {
		var defs []table.TableDefinition
		if s.Memory && s.Operation == opUpload {
			// Nothing survives an in-memory run, so the tables have to exist
			// before the upload.
			defs = env.catalog.ListTables()
		}
		store, err := ddbstore.New(ddbstore.StoreOptions{
			Path:     s.LocalDB,
			InMemory: s.Memory,
			Logger:   env.logger.Named("store"),
		}, defs...)
		if err != nil {
			return nil, err
		}
		env.client = store
		env.logger.Info("using embedded store", zap.String("path", s.LocalDB), zap.Bool("memory", s.Memory))
		return func() {
			if err := store.Close(); err != nil {
				env.logger.Warn("closing store", zap.Error(err))
			}
		}, nil
	}

	cfg, err := awsconf.Load(ctx, awsOptions(s, env.logger))
	if err != nil {
		return nil, err
	}
	if s.Endpoint == "" {
		id, err := awsconf.CallerIdentity(ctx, awsconf.NewSTS(cfg))
		if err != nil {
			env.logger.Warn("could not verify credentials", zap.Error(err))
		} else {
			env.logger.Info("authenticated", zap.String("account", id.Account), zap.String("arn", id.ARN))
		}
	}
	env.logger.Info("using DynamoDB", zap.String("region", cfg.Region), zap.String("endpoint", s.Endpoint))
	env.client = awsconf.NewDynamoDB(cfg)
	return func() {}, nil
}

func awsOptions(s settings, logger *zap.Logger) awsconf.Options {
	return awsconf.Options{
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		Profile:         s.Profile,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		SessionToken:    s.SessionToken,
		Logger:          logger,
	}
}
