package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/ddbseed/dynamodb/ddberr"
)

// execute runs the root command the way main does and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(normalizeArgs(root.Flags(), args))
	err := root.Execute()
	return out.String(), err
}

func TestLookupOperation(t *testing.T) {
	for _, name := range []string{"create", "upload"} {
		op, err := lookupOperation(name)
		require.NoError(t, err, name)
		assert.NotNil(t, op)
	}

	_, err := lookupOperation("delete")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ddberr.ErrUnknownOperation))
	var unknown *ddberr.UnknownOperationError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "delete", unknown.Operation)
	assert.Equal(t, []string{"create", "upload"}, unknown.Valid)
}

func TestUnknownOperationFailsBeforeConnecting(t *testing.T) {
	_, err := execute(t, "-operation", "drop", "--region", "nowhere-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ddberr.ErrUnknownOperation))
}

func TestOperationRequired(t *testing.T) {
	_, err := execute(t, "--memory")
	require.ErrorContains(t, err, "operation")
}

func TestNormalizeArgs(t *testing.T) {
	var s settings
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags, &s)

	tests := []struct {
		in, want []string
	}{
		{[]string{"-operation", "create"}, []string{"--operation", "create"}},
		{[]string{"-region=eu-west-1"}, []string{"--region=eu-west-1"}},
		{[]string{"-o", "upload", "-v"}, []string{"-o", "upload", "-v"}},
		{[]string{"--endpoint", "http://localhost:8000"}, []string{"--endpoint", "http://localhost:8000"}},
		{[]string{"-nosuchflag"}, []string{"-nosuchflag"}},
		{[]string{"--", "-operation"}, []string{"--", "-operation"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeArgs(flags, tt.in), strings.Join(tt.in, " "))
	}
}

func TestSetAllConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, configFileName), `
region: from-file-1
max-retries: 3
concurrency: 2
timeout: 30s
`)
	t.Chdir(filepath.Join(mkdir(t, dir, "a/b")))
	t.Setenv("DDBSEED_CONCURRENCY", "7")

	var s settings
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags, &s)
	require.NoError(t, flags.Parse([]string{"--max-retries", "1"}))
	require.NoError(t, setAllConfig(viper.New(), flags))

	assert.Equal(t, "from-file-1", s.Region, "file")
	assert.Equal(t, 7, s.Concurrency, "env beats file")
	assert.Equal(t, 1, s.MaxRetries, "flag beats file")
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, 2*time.Minute, s.Wait, "default")
}

func TestSetAllConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	writeFile(t, path, "regoin: eu-west-1\n")

	var s settings
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags, &s)
	require.NoError(t, flags.Parse([]string{"--config", path}))
	err := setAllConfig(viper.New(), flags)
	require.ErrorContains(t, err, "regoin")
}

func TestDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, ".env", "DDBSEED_ENDPOINT=http://localhost:8000\n")
	t.Setenv("DDBSEED_ENDPOINT", "")
	os.Unsetenv("DDBSEED_ENDPOINT")

	var s settings
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags, &s)
	require.NoError(t, setAllConfig(viper.New(), flags))
	assert.Equal(t, "http://localhost:8000", s.Endpoint)
}

func TestCreateInMemory(t *testing.T) {
	out, err := execute(t, "-operation", "create", "--memory")
	require.NoError(t, err)
	for _, name := range []string{"ProductCatalog", "Forum", "Thread", "Reply"} {
		assert.Regexp(t, name+`\s+created`, out)
	}
}

func TestUploadInMemory(t *testing.T) {
	out, err := execute(t, "-o", "upload", "--memory")
	require.NoError(t, err)
	assert.Contains(t, out, "8/8 items")
	assert.Contains(t, out, "4/4 items")
}

func TestLocalDBCreateThenUpload(t *testing.T) {
	db := t.TempDir()
	metrics := filepath.Join(t.TempDir(), "ddbseed.prom")

	_, err := execute(t, "--operation", "create", "--local-db", db)
	require.NoError(t, err)

	out, err := execute(t, "--operation", "create", "--local-db", db)
	require.NoError(t, err)
	assert.Regexp(t, `Reply\s+already exists`, out)

	out, err = execute(t, "--operation", "upload", "--local-db", db, "--respect-capacity", "--metrics-file", metrics)
	require.NoError(t, err)
	assert.Contains(t, out, "8/8 items")

	text, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(text), "ddbseed_ingest_items_total")
}

func TestCustomCatalogAndData(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	writeFile(t, catalog, `
tables:
  - name: Events
    partitionKey: {name: Source, kind: S}
    sortKey: {name: At, kind: N}
`)
	data := filepath.Join(dir, "data.yaml")
	writeFile(t, data, `
Events:
  - {Source: web, At: 1, Path: /}
  - {Source: web, At: 2, Path: /about}
  - {Source: cli, At: 1}
`)
	db := t.TempDir()

	out, err := execute(t, "-o", "create", "--local-db", db, "--catalog", catalog)
	require.NoError(t, err)
	assert.Regexp(t, `Events\s+created`, out)

	out, err = execute(t, "-o", "upload", "--local-db", db, "--catalog", catalog, "--data", data, "--respect-capacity")
	require.NoError(t, err)
	assert.Contains(t, out, "3/3 items")
}

func TestUploadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := run(ctx, settings{Operation: opUpload, Memory: true, MaxRetries: 8, Concurrency: 4}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out.String(), "0/8 items")
}

func TestStaticCredentials(t *testing.T) {
	t.Setenv("DDBSEED_SECRET_ACCESS_KEY", "from-env")

	var s settings
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags, &s)
	require.NoError(t, flags.Parse([]string{"--access-key-id", "AKID", "--session-token", "token"}))
	require.NoError(t, setAllConfig(viper.New(), flags))

	opts := awsOptions(s, zap.NewNop())
	assert.Equal(t, "AKID", opts.AccessKeyID)
	assert.Equal(t, "from-env", opts.SecretAccessKey)
	assert.Equal(t, "token", opts.SessionToken)
}

func TestUploadRejectsInvalidData(t *testing.T) {
	data := filepath.Join(t.TempDir(), "data.yaml")
	writeFile(t, data, `
Forum:
  - Name: ok
  - Threads: 2
`)
	_, err := execute(t, "--operation", "upload", "--memory", "--data", data)
	require.Error(t, err)
	assert.True(t, ddberr.IsValidation(err))
}

func TestUploadWithoutTablesFails(t *testing.T) {
	_, err := execute(t, "--operation", "upload", "--local-db", t.TempDir(), "--max-retries", "0")
	require.ErrorContains(t, err, "items were not written")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	dir := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}
