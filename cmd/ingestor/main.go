// Command ingestor runs the SQS-notified S3 log ingestor as a
// long-running process (the default, poll-loop mode) or, with
// -mode=lambda, as an SQS-triggered Lambda function sharing the exact
// same per-message handling logic.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/openshift/rosa-log-ingestor/internal/config"
	"github.com/openshift/rosa-log-ingestor/internal/ingestor"
	"github.com/openshift/rosa-log-ingestor/internal/routing"
	"github.com/openshift/rosa-log-ingestor/internal/sqslambda"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration document")
	mode := flag.String("mode", "", "execution mode: sqs (default, long-running poll loop) or lambda")
	flag.Parse()

	logger := newLogger()
	slog.SetDefault(logger)

	resolved, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(resolved.Ingestor.Region))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	if roleArn := resolved.Domain.AssumeRole; roleArn != "" {
		logger.Info("assuming role for AWS calls", "role_arn", roleArn)
		awsCfg.Credentials = aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), roleArn))
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = resolved.Domain.S3UsePathStyle
	})
	sqsClient := sqs.NewFromConfig(awsCfg)
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	stsClient := sts.NewFromConfig(awsCfg)
	cwClient := cloudwatch.NewFromConfig(awsCfg)

	sink := routing.New(
		dynamoClient,
		stsClient,
		cwClient,
		resolved.Domain.TenantConfigTable,
		resolved.Domain.CentralLogDistributionRoleArn,
		resolved.Domain.AWSEndpointURL,
		resolved.Domain.S3UsePathStyle,
		logger,
	)

	ing, err := ingestor.New(ctx, resolved.Ingestor, sqsClient, s3Client, sink, logger)
	if err != nil {
		logger.Error("failed to construct ingestor", "error", err)
		os.Exit(1)
	}

	executionMode := *mode
	if executionMode == "" {
		executionMode = os.Getenv("EXECUTION_MODE")
	}

	switch executionMode {
	case "lambda":
		logger.Info("starting in lambda mode")
		handler := sqslambda.New(ing, logger)
		lambda.Start(handler.Handle)

	case "sqs", "":
		logger.Info("starting in sqs poll-loop mode", "queue_name", resolved.Ingestor.QueueName)
		if err := ing.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("ingestor exited with error", "error", err)
			os.Exit(1)
		}
		logger.Info("ingestor stopped")

	default:
		fmt.Fprintf(os.Stderr, "unknown execution mode %q: expected sqs or lambda\n", executionMode)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG", "debug":
		level = slog.LevelDebug
	case "WARN", "warn", "WARNING", "warning":
		level = slog.LevelWarn
	case "ERROR", "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
