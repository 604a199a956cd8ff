package delivery

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// assumedRoleConfig builds an aws.Config pinned to creds, the
// credentials of an already-assumed role, optionally pointed at a
// LocalStack-style endpoint instead of the real AWS API.
func assumedRoleConfig(ctx context.Context, region string, creds aws.Credentials, endpointURL string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return creds, nil
		})),
	}

	// The deprecated global endpoint resolver is the one mechanism that
	// redirects every service client (S3, CloudWatch, STS) consistently,
	// which LocalStack needs; the per-service replacement would have to
	// be repeated at each client construction site.
	if endpointURL != "" {
		opts = append(opts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpointURL, HostnameImmutable: true}, nil
			}),
		))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}
