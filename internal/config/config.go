// Package config loads the ingestor's YAML configuration document and
// applies environment variable overrides for deployment knobs, the
// same two-layer loading pattern cmd/log-processor used before this
// repository grew a declarative config file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openshift/rosa-log-ingestor/internal/compression"
	"github.com/openshift/rosa-log-ingestor/internal/ingestor"
	"github.com/openshift/rosa-log-ingestor/internal/multiline"
)

// multilineYAML mirrors MultilineConfig as it appears in the YAML
// document: patterns are plain strings and the timeout is milliseconds.
type multilineYAML struct {
	StartPattern     string `yaml:"start_pattern"`
	ConditionPattern string `yaml:"condition_pattern"`
	Mode             string `yaml:"mode"`
	TimeoutMS        int64  `yaml:"timeout_ms"`
}

type sqsYAML struct {
	Region                string `yaml:"region"`
	QueueName             string `yaml:"queue_name"`
	PollSecs              int64  `yaml:"poll_secs"`
	VisibilityTimeoutSecs int64  `yaml:"visibility_timeout_secs"`
	DeleteMessage         *bool  `yaml:"delete_message"`
}

// documentYAML is the top-level shape of the configuration file: a
// strategy selector plus the compression, sqs, multiline and domain
// blocks below. Every field must be recognized; KnownFields(true) on
// the decoder rejects anything else.
type documentYAML struct {
	Strategy    string         `yaml:"strategy"`
	Compression string         `yaml:"compression"`
	AssumeRole  string         `yaml:"assume_role"`
	Multiline   *multilineYAML `yaml:"multiline"`
	SQS         *sqsYAML       `yaml:"sqs"`
	Domain      *domainYAML    `yaml:"domain"`
}

// domainYAML configures the concrete multi-destination sink wired into
// cmd/ingestor; it has no equivalent in the ingestor core itself.
type domainYAML struct {
	TenantConfigTable             string `yaml:"tenant_config_table"`
	CentralLogDistributionRoleArn string `yaml:"central_log_distribution_role_arn"`
	S3UsePathStyle                bool   `yaml:"s3_use_path_style"`
	AWSEndpointURL                string `yaml:"aws_endpoint_url"`
}

// Domain holds the settings internal/routing needs that fall outside
// the ingestor core's own Config.
type Domain struct {
	TenantConfigTable             string
	CentralLogDistributionRoleArn string
	S3UsePathStyle                bool
	AWSEndpointURL                string
	AssumeRole                    string
}

// Resolved is everything cmd/ingestor needs after loading and
// validating the YAML document and environment overrides.
type Resolved struct {
	Ingestor ingestor.Config
	Domain   Domain
}

// Load reads a strict YAML document from path, then applies any
// recognized environment variable overrides, and returns a fully
// resolved, validated configuration.
func Load(path string) (Resolved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Resolved{}, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var doc documentYAML
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Resolved{}, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if doc.Strategy == "" {
		doc.Strategy = "sqs"
	}
	if doc.Strategy != "sqs" {
		return Resolved{}, fmt.Errorf("unrecognized strategy %q: only %q is supported", doc.Strategy, "sqs")
	}
	if doc.SQS == nil {
		return Resolved{}, fmt.Errorf("sqs configuration is required when strategy is %q", "sqs")
	}

	cfg := ingestor.DefaultConfig()
	cfg.Region = doc.SQS.Region
	cfg.QueueName = doc.SQS.QueueName
	if doc.SQS.PollSecs > 0 {
		cfg.PollInterval = time.Duration(doc.SQS.PollSecs) * time.Second
	}
	if doc.SQS.VisibilityTimeoutSecs > 0 {
		cfg.VisibilityTimeout = doc.SQS.VisibilityTimeoutSecs
	}
	if doc.SQS.DeleteMessage != nil {
		cfg.DeleteMessage = *doc.SQS.DeleteMessage
	}

	kind, ok := compression.ParseKind(doc.Compression)
	if doc.Compression != "" && !ok {
		return Resolved{}, fmt.Errorf("unrecognized compression %q", doc.Compression)
	}
	if doc.Compression != "" {
		cfg.Compression = kind
	}

	if doc.Multiline != nil {
		mlCfg, err := parseMultiline(*doc.Multiline)
		if err != nil {
			return Resolved{}, fmt.Errorf("parsing multiline config: %w", err)
		}
		cfg.Multiline = &mlCfg
	}

	domain := Domain{AssumeRole: doc.AssumeRole}
	if doc.Domain != nil {
		domain.TenantConfigTable = doc.Domain.TenantConfigTable
		domain.CentralLogDistributionRoleArn = doc.Domain.CentralLogDistributionRoleArn
		domain.S3UsePathStyle = doc.Domain.S3UsePathStyle
		domain.AWSEndpointURL = doc.Domain.AWSEndpointURL
	}

	applyEnvOverrides(&cfg, &domain)

	if err := cfg.Validate(); err != nil {
		return Resolved{}, err
	}

	return Resolved{Ingestor: cfg, Domain: domain}, nil
}

func parseMultiline(m multilineYAML) (multiline.Config, error) {
	start, err := regexp.Compile(m.StartPattern)
	if err != nil {
		return multiline.Config{}, fmt.Errorf("invalid start_pattern: %w", err)
	}
	cond, err := regexp.Compile(m.ConditionPattern)
	if err != nil {
		return multiline.Config{}, fmt.Errorf("invalid condition_pattern: %w", err)
	}

	mode, err := parseMode(m.Mode)
	if err != nil {
		return multiline.Config{}, err
	}

	timeout := time.Second
	if m.TimeoutMS > 0 {
		timeout = time.Duration(m.TimeoutMS) * time.Millisecond
	}

	return multiline.Config{
		StartPattern:     start,
		ConditionPattern: cond,
		Mode:             mode,
		Timeout:          timeout,
	}, nil
}

func parseMode(s string) (multiline.Mode, error) {
	switch s {
	case "continue_through", "":
		return multiline.ContinueThrough, nil
	case "continue_past":
		return multiline.ContinuePast, nil
	case "halt_before":
		return multiline.HaltBefore, nil
	case "halt_with":
		return multiline.HaltWith, nil
	default:
		return 0, fmt.Errorf("unrecognized multiline mode %q", s)
	}
}

// applyEnvOverrides layers environment variables on top of the YAML
// document for the knobs that vary by deployment (queue URL region,
// role ARNs, LocalStack endpoint) rather than by logical configuration.
func applyEnvOverrides(cfg *ingestor.Config, domain *Domain) {
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("SQS_QUEUE_NAME"); v != "" {
		cfg.QueueName = v
	}
	if v := os.Getenv("VISIBILITY_TIMEOUT_SECS"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.VisibilityTimeout = i
		}
	}
	if v := os.Getenv("TENANT_CONFIG_TABLE"); v != "" {
		domain.TenantConfigTable = v
	}
	if v := os.Getenv("CENTRAL_LOG_DISTRIBUTION_ROLE_ARN"); v != "" {
		domain.CentralLogDistributionRoleArn = v
	}
	if v := os.Getenv("AWS_S3_USE_PATH_STYLE"); v != "" {
		domain.S3UsePathStyle = v == "true" || v == "1"
	}
	if v := os.Getenv("AWS_ENDPOINT_URL"); v != "" {
		domain.AWSEndpointURL = v
	}
}
