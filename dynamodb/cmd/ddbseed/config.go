package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "DDBSEED"
	configFileName = "ddbseed.yaml"
)

// settings holds every option of a run. Each field is bound to a flag of the
// same name, see registerFlags.
type settings struct {
	Operation string

	Region   string
	Endpoint string
	Profile  string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	LocalDB string
	Memory  bool

	Catalog string
	Data    string

	MaxRetries      int
	Concurrency     int
	TableCeiling    int
	Timeout         time.Duration
	Wait            time.Duration
	RespectCapacity bool

	MetricsFile string
	Verbose     bool
	Config      string
}

func registerFlags(flags *pflag.FlagSet, s *settings) {
	flags.StringVarP(&s.Operation, "operation", "o", "", "operation to run: "+strings.Join(operationNames(), " | "))
	flags.StringVar(&s.Region, "region", "", "AWS region, defaults to the SDK chain and then instance metadata")
	flags.StringVar(&s.Endpoint, "endpoint", "", "custom DynamoDB endpoint, e.g. http://localhost:8000 for DynamoDB Local")
	flags.StringVar(&s.Profile, "profile", "", "shared config profile")
	flags.StringVar(&s.AccessKeyID, "access-key-id", "", "static AWS access key id, used together with --secret-access-key")
	flags.StringVar(&s.SecretAccessKey, "secret-access-key", "", "static AWS secret access key")
	flags.StringVar(&s.SessionToken, "session-token", "", "session token for temporary static credentials")

	flags.StringVar(&s.LocalDB, "local-db", "", "use an embedded store persisted in this directory instead of DynamoDB")
	flags.BoolVar(&s.Memory, "memory", false, "use an in-memory embedded store instead of DynamoDB")

	flags.StringVar(&s.Catalog, "catalog", "", "table catalog yaml, defaults to the built-in catalog")
	flags.StringVar(&s.Data, "data", "", "dataset yaml, defaults to the built-in sample items")

	flags.IntVar(&s.MaxRetries, "max-retries", 8, "resubmissions of unprocessed items per batch")
	flags.IntVar(&s.Concurrency, "concurrency", 4, "batches in flight per table")
	flags.IntVar(&s.TableCeiling, "table-ceiling", 0, "batches in flight per table across the run, 0 for no ceiling")
	flags.DurationVar(&s.Timeout, "timeout", 0, "time budget for uploading one table, 0 for none")
	flags.DurationVar(&s.Wait, "wait", 2*time.Minute, "how long create waits for new tables to become ACTIVE, 0 to not wait")
	flags.BoolVar(&s.RespectCapacity, "respect-capacity", false, "limit the upload rate to the provisioned write units of the target tables")

	flags.StringVar(&s.MetricsFile, "metrics-file", "", "write upload metrics to this file in the Prometheus text format")
	flags.BoolVarP(&s.Verbose, "verbose", "v", false, "debug logging")
	flags.StringVarP(&s.Config, "config", "c", "", "configuration file, defaults to "+configFileName+" in the working directory or a parent")
}

// setAllConfig fills every flag that was not set on the command line from,
// in order, a DDBSEED_* environment variable and the configuration file.
// Environment names are the upper-cased flag names with dashes replaced by
// underscores.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := loadDotEnv(); err != nil {
		return err
	}
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	c := v.GetString("config")
	if c == "" {
		c = findConfigFile()
	}
	if c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file %q", c)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return errors.Errorf("invalid option in configuration file %q: %v", c, key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		if !v.IsSet(f.Name) {
			return
		}
		flagErr = errors.Wrapf(f.Value.Set(v.GetString(f.Name)), "option %q", f.Name)
	})
	return flagErr
}

// loadDotEnv loads .env from the working directory. Variables already set in
// the environment win. A missing file is not an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrap(err, "loading .env")
}

// findConfigFile searches for ddbseed.yaml walking up from the working
// directory. Returns "" if there is none.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// normalizeArgs rewrites single-dash long flags such as -operation to their
// double-dash form, so invocations written for Go's flag package keep working.
// Short flags and arguments after "--" are left alone.
func normalizeArgs(flags *pflag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if a == "--" {
			return append(out, args[i:]...)
		}
		if len(a) > 2 && a[0] == '-' && a[1] != '-' {
			name, _, _ := strings.Cut(a[1:], "=")
			if len(name) > 1 && flags.Lookup(name) != nil {
				a = "-" + a
			}
		}
		out = append(out, a)
	}
	return out
}
