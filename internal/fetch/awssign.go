package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// emptyPayloadHash is the hex SHA-256 of an empty body, which is what every
// GET carries.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

const (
	defaultAWSService = "execute-api"
	defaultAWSHost    = "amazonaws.com"
)

// AWSSignerConfig holds the settings for signing links to IAM-protected
// AWS endpoints, such as API Gateway stages.
type AWSSignerConfig struct {
	Region string

	// AccessKeyID and SecretAccessKey select static credentials. When
	// either is empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// Service is the SigV4 signing name. Defaults to "execute-api".
	Service string

	// Hosts are the host suffixes whose requests get signed. Defaults to
	// "amazonaws.com".
	Hosts []string
}

// AWSSigner signs requests to matching hosts with AWS Signature Version 4.
// Requests to any other host pass through untouched so credentials never
// leave for third-party links.
type AWSSigner struct {
	signer      *v4.Signer
	credentials aws.CredentialsProvider
	region      string
	service     string
	hosts       []string
}

// NewAWSSigner loads AWS credentials and creates an AWSSigner.
func NewAWSSigner(ctx context.Context, cfg AWSSignerConfig) (*AWSSigner, error) {
	if cfg.Region == "" {
		return nil, errors.New("AWS region is required for request signing")
	}

	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewAWSSignerWithCredentials(awsCfg.Credentials, cfg.Region, cfg.Service, cfg.Hosts), nil
}

// NewAWSSignerWithCredentials creates an AWSSigner around an existing
// credentials provider, used for testing.
func NewAWSSignerWithCredentials(creds aws.CredentialsProvider, region, service string, hosts []string) *AWSSigner {
	if service == "" {
		service = defaultAWSService
	}
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.Trim(strings.ToLower(strings.TrimSpace(h)), "."); h != "" {
			normalized = append(normalized, h)
		}
	}
	if len(normalized) == 0 {
		normalized = []string{defaultAWSHost}
	}
	return &AWSSigner{
		signer:      v4.NewSigner(),
		credentials: creds,
		region:      region,
		service:     service,
		hosts:       normalized,
	}
}

// Matches reports whether requests to host are signed.
func (s *AWSSigner) Matches(host string) bool {
	host = strings.ToLower(host)
	for _, h := range s.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Sign adds SigV4 authentication headers to req when its host matches.
func (s *AWSSigner) Sign(ctx context.Context, req *http.Request) error {
	if !s.Matches(req.URL.Hostname()) {
		return nil
	}

	creds, err := s.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}

	return s.signer.SignHTTP(ctx, creds, req, emptyPayloadHash, s.service, s.region, time.Now())
}
