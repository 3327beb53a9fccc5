// Package awsconf resolves the AWS configuration used to reach DynamoDB:
// explicit flags first, then the SDK's default chain (environment, shared
// config, profile), and finally the region of the EC2 instance the tool runs
// on.
package awsconf

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LocalRegion is used when a custom endpoint is given without a region.
// DynamoDB Local accepts any region.
const LocalRegion = "us-east-1"

// RegionGetter is the instance metadata call used for the region fallback.
type RegionGetter interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

type Options struct {
	Region   string
	Endpoint string
	Profile  string

	// Static credentials. Used only when both the key id and the secret are set.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// IMDS overrides the instance metadata client. Defaults to imds.NewFromConfig.
	IMDS RegionGetter
	// IMDSTimeout bounds the region lookup. Defaults to 2s.
	IMDSTimeout time.Duration

	Logger *zap.Logger
}

// Load builds the AWS configuration. When no region is configured anywhere
// the region is read from EC2 instance metadata, unless Endpoint is set, in
// which case LocalRegion is used.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "failed to load AWS configuration")
	}
	if opts.Endpoint != "" {
		// For DynamoDB Local, LocalStack or other custom endpoints
		cfg.BaseEndpoint = aws.String(opts.Endpoint)
	}

	if cfg.Region == "" {
		if opts.Endpoint != "" {
			cfg.Region = LocalRegion
		} else {
			region, err := instanceRegion(ctx, cfg, opts)
			if err != nil {
				return aws.Config{}, err
			}
			log.Info("using region from instance metadata", zap.String("region", region))
			cfg.Region = region
		}
	}
	return cfg, nil
}

func instanceRegion(ctx context.Context, cfg aws.Config, opts Options) (string, error) {
	getter := opts.IMDS
	if getter == nil {
		getter = imds.NewFromConfig(cfg)
	}
	timeout := opts.IMDSTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := getter.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", errors.Wrap(err, "no region configured and instance metadata is unavailable, set --region")
	}
	if out.Region == "" {
		return "", errors.New("no region configured and instance metadata returned none, set --region")
	}
	return out.Region, nil
}

// NewDynamoDB returns a DynamoDB client for cfg.
func NewDynamoDB(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

// IdentityGetter is the STS call used by CallerIdentity.
type IdentityGetter interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type Identity struct {
	Account string
	ARN     string
}

// CallerIdentity reports who the resolved credentials belong to. It is a
// cheap way to fail fast on missing or expired credentials.
func CallerIdentity(ctx context.Context, client IdentityGetter) (Identity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, errors.Wrap(err, "resolving caller identity")
	}
	return Identity{Account: aws.ToString(out.Account), ARN: aws.ToString(out.Arn)}, nil
}

// NewSTS returns an STS client for cfg. A custom endpoint set on cfg is not
// carried over, since it points at DynamoDB.
func NewSTS(cfg aws.Config) *sts.Client {
	cfg = cfg.Copy()
	cfg.BaseEndpoint = nil
	return sts.NewFromConfig(cfg)
}
