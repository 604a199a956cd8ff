// Package delivery ships enriched records to their configured
// destinations: a customer CloudWatch Logs group reached by double-hop
// role assumption, or a customer-owned S3 bucket reached by server-side
// copy.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	stypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/google/uuid"
	"github.com/openshift/rosa-log-ingestor/internal/models"
	"github.com/openshift/rosa-log-ingestor/internal/record"
)

// CloudWatchLogsAPI is the subset of the CloudWatch Logs client the
// deliverer depends on.
type CloudWatchLogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
}

// batchLimits bound one PutLogEvents call. The service rejects batches
// over 1000 events or ~1MB; flushAfter matches Vector's batch timeout.
type batchLimits struct {
	maxEvents  int
	maxBytes   int64
	flushAfter time.Duration
}

// perEventOverhead is the fixed per-event byte cost the PutLogEvents
// payload limit charges on top of the message itself.
const perEventOverhead = 26

var defaultBatchLimits = batchLimits{
	maxEvents:  1000,
	maxBytes:   1037576,
	flushAfter: 5 * time.Second,
}

// CloudWatchDeliverer delivers record batches to a tenant's CloudWatch
// Logs destination, assuming the central log distribution role and then
// the customer's own role (with the source account as ExternalId) before
// writing.
type CloudWatchDeliverer struct {
	stsClient      *sts.Client
	centralRoleArn string
	endpointURL    string
	logger         *slog.Logger
	limits         batchLimits
}

// NewCloudWatchDeliverer builds a deliverer using the default service
// batch limits.
func NewCloudWatchDeliverer(stsClient *sts.Client, centralRoleArn string, endpointURL string, logger *slog.Logger) *CloudWatchDeliverer {
	return &CloudWatchDeliverer{
		stsClient:      stsClient,
		centralRoleArn: centralRoleArn,
		endpointURL:    endpointURL,
		logger:         logger,
		limits:         defaultBatchLimits,
	}
}

// DeliverLogs converts records into CloudWatch log events and delivers
// them to the log group/stream deliveryConfig names. s3Timestamp is the
// fallback event timestamp for records carrying none of their own.
func (d *CloudWatchDeliverer) DeliverLogs(ctx context.Context, records []*record.Record, deliveryConfig *models.DeliveryConfig, tenantInfo *models.TenantInfo, s3Timestamp int64) (Stats, error) {
	d.logger.Info("starting CloudWatch delivery",
		"record_count", len(records),
		"tenant_id", tenantInfo.TenantID,
		"log_group", deliveryConfig.LogGroupName)

	centralCreds, err := d.assumeCentralRole(ctx)
	if err != nil {
		return Stats{}, err
	}

	// The customer role trusts the central account via ExternalId.
	callerIdentity, err := d.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get caller identity: %w", err)
	}

	targetRegion := deliveryConfig.TargetRegion
	if targetRegion == "" {
		targetRegion = "us-east-1"
	}

	logsClient, err := d.customerLogsClient(ctx, centralCreds, deliveryConfig.LogDistributionRoleArn, *callerIdentity.Account, targetRegion)
	if err != nil {
		return Stats{}, err
	}

	events := buildLogEvents(records, s3Timestamp, d.logger)

	if err := ensureLogGroupAndStreamExist(ctx, logsClient, deliveryConfig.LogGroupName, tenantInfo.PodName, d.logger); err != nil {
		return Stats{}, err
	}

	bs, err := deliverEventsInBatches(ctx, logsClient, deliveryConfig.LogGroupName, tenantInfo.PodName, events, d.limits, d.logger)
	stats := Stats{SuccessfulRecords: bs.SuccessfulEvents, FailedRecords: bs.FailedEvents}
	if err != nil {
		return stats, err
	}

	if bs.FailedEvents > 0 {
		return stats, fmt.Errorf("failed to deliver %d out of %d events to CloudWatch", bs.FailedEvents, bs.TotalProcessed)
	}

	d.logger.Info("successfully delivered logs to CloudWatch",
		"tenant_id", tenantInfo.TenantID,
		"successful_records", stats.SuccessfulRecords,
		"failed_records", stats.FailedRecords)

	return stats, nil
}

// assumeCentralRole performs the first hop into the central log
// distribution role.
func (d *CloudWatchDeliverer) assumeCentralRole(ctx context.Context) (*stypes.Credentials, error) {
	resp, err := d.stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(d.centralRoleArn),
		RoleSessionName: aws.String("CentralLogDistribution-" + uuid.New().String()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assume central log distribution role: %w", err)
	}
	return resp.Credentials, nil
}

// customerLogsClient performs the second hop: using the central role's
// credentials, assume the customer's log distribution role and return a
// CloudWatch Logs client scoped to it.
func (d *CloudWatchDeliverer) customerLogsClient(ctx context.Context, centralCreds *stypes.Credentials, customerRoleArn, externalID, region string) (*cloudwatchlogs.Client, error) {
	centralConfig, err := assumedRoleConfig(ctx, region, aws.Credentials{
		AccessKeyID:     *centralCreds.AccessKeyId,
		SecretAccessKey: *centralCreds.SecretAccessKey,
		SessionToken:    *centralCreds.SessionToken,
	}, d.endpointURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create STS config: %w", err)
	}

	d.logger.Info("assuming customer role", "role_arn", customerRoleArn)
	customerRoleResp, err := sts.NewFromConfig(centralConfig).AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(customerRoleArn),
		RoleSessionName: aws.String("CloudWatchLogDelivery-" + uuid.New().String()),
		ExternalId:      aws.String(externalID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assume customer role: %w", err)
	}

	customerConfig, err := assumedRoleConfig(ctx, region, aws.Credentials{
		AccessKeyID:     *customerRoleResp.Credentials.AccessKeyId,
		SecretAccessKey: *customerRoleResp.Credentials.SecretAccessKey,
		SessionToken:    *customerRoleResp.Credentials.SessionToken,
	}, d.endpointURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudWatch config: %w", err)
	}

	return cloudwatchlogs.NewFromConfig(customerConfig), nil
}

// buildLogEvents converts records to input log events sorted
// chronologically (a PutLogEvents requirement), substituting s3Timestamp
// for records that carry no usable timestamp of their own.
func buildLogEvents(records []*record.Record, s3Timestamp int64, logger *slog.Logger) []types.InputLogEvent {
	events := make([]types.InputLogEvent, 0, len(records))
	for _, rec := range records {
		event := RecordToLogEvent(rec, logger)

		timestamp := event.Timestamp
		if timestamp == nil || isZeroTimestamp(timestamp) {
			timestamp = s3Timestamp
		}

		events = append(events, types.InputLogEvent{
			Timestamp: aws.Int64(models.ProcessTimestampLikeVector(timestamp, logger)),
			Message:   aws.String(eventMessageString(event.Message, logger)),
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return *events[i].Timestamp < *events[j].Timestamp
	})
	return events
}

// eventMessageString renders a log event message for the wire: strings
// pass through, anything else is JSON-encoded.
func eventMessageString(message interface{}, logger *slog.Logger) string {
	if s, ok := message.(string); ok {
		return s
	}
	jsonBytes, err := json.Marshal(message)
	if err != nil {
		logger.Warn("failed to marshal message to JSON", "error", err)
		return fmt.Sprintf("%v", message)
	}
	return string(jsonBytes)
}

func isZeroTimestamp(timestamp interface{}) bool {
	switch ts := timestamp.(type) {
	case string:
		return ts == ""
	case float64:
		return ts == 0
	case int64:
		return ts == 0
	case int:
		return ts == 0
	default:
		return false
	}
}

// ensureLogGroupAndStreamExist creates the log group and stream if they
// are missing. A ResourceAlreadyExistsException from either create call
// means another writer won the race, which is fine.
func ensureLogGroupAndStreamExist(ctx context.Context, client CloudWatchLogsAPI, logGroup, logStream string, logger *slog.Logger) error {
	groupsResp, err := client.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(logGroup),
	})
	if err != nil {
		return fmt.Errorf("failed to describe log groups: %w", err)
	}

	if !containsLogGroup(groupsResp.LogGroups, logGroup) {
		logger.Info("creating log group", "log_group", logGroup)
		_, err = client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
			LogGroupName: aws.String(logGroup),
		})
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("failed to create log group: %w", err)
		}
	}

	streamsResp, err := client.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName:        aws.String(logGroup),
		LogStreamNamePrefix: aws.String(logStream),
	})
	if err != nil {
		return fmt.Errorf("failed to describe log streams: %w", err)
	}

	if !containsLogStream(streamsResp.LogStreams, logStream) {
		logger.Info("creating log stream", "log_group", logGroup, "log_stream", logStream)
		_, err = client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
			LogGroupName:  aws.String(logGroup),
			LogStreamName: aws.String(logStream),
		})
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("failed to create log stream: %w", err)
		}
	}

	return nil
}

func isAlreadyExists(err error) bool {
	var alreadyExists *types.ResourceAlreadyExistsException
	return errors.As(err, &alreadyExists)
}

func containsLogGroup(groups []types.LogGroup, name string) bool {
	for _, g := range groups {
		if g.LogGroupName != nil && *g.LogGroupName == name {
			return true
		}
	}
	return false
}

func containsLogStream(streams []types.LogStream, name string) bool {
	for _, s := range streams {
		if s.LogStreamName != nil && *s.LogStreamName == name {
			return true
		}
	}
	return false
}

// batchStats tallies a single deliverEventsInBatches call. TotalProcessed
// feeds the re-queue error message and has no meaning past this function,
// so it stays out of the public Stats type returned to callers.
type batchStats struct {
	SuccessfulEvents int
	FailedEvents     int
	TotalProcessed   int
}

// eventBatcher accumulates events up to the configured limits, flushing
// a batch whenever admitting the next event would breach any of them.
type eventBatcher struct {
	client    CloudWatchLogsAPI
	logGroup  string
	logStream string
	limits    batchLimits
	logger    *slog.Logger

	pending      []types.InputLogEvent
	pendingBytes int64
	openedAt     time.Time
	stats        *batchStats
}

// deliverEventsInBatches sends events to logGroup/logStream within the
// given limits, attempting each batch up to three times with exponential
// backoff. A batch failing all attempts stops delivery; the returned
// stats still cover everything sent up to that point.
func deliverEventsInBatches(ctx context.Context, client CloudWatchLogsAPI, logGroup, logStream string, events []types.InputLogEvent, limits batchLimits, logger *slog.Logger) (*batchStats, error) {
	stats := &batchStats{}
	if len(events) == 0 {
		return stats, nil
	}

	b := &eventBatcher{
		client:    client,
		logGroup:  logGroup,
		logStream: logStream,
		limits:    limits,
		logger:    logger,
		openedAt:  time.Now(),
		stats:     stats,
	}

	for _, event := range events {
		if err := b.add(ctx, event); err != nil {
			return stats, err
		}
	}
	return stats, b.flush(ctx)
}

// add admits one event, flushing the open batch first if the event
// would push it past any limit.
func (b *eventBatcher) add(ctx context.Context, event types.InputLogEvent) error {
	eventSize := int64(len(*event.Message)) + perEventOverhead

	if len(b.pending) > 0 && b.shouldFlushBefore(eventSize) {
		if err := b.flush(ctx); err != nil {
			return err
		}
	}

	b.pending = append(b.pending, event)
	b.pendingBytes += eventSize
	b.stats.TotalProcessed++
	return nil
}

func (b *eventBatcher) shouldFlushBefore(eventSize int64) bool {
	return b.pendingBytes+eventSize > b.limits.maxBytes ||
		len(b.pending)+1 > b.limits.maxEvents ||
		time.Since(b.openedAt) >= b.limits.flushAfter
}

// flush sends the open batch, accounting per-event success/rejection
// from the response, and opens a fresh one.
func (b *eventBatcher) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}

	batch := b.pending
	b.logger.Info("sending batch to CloudWatch",
		"event_count", len(batch),
		"total_bytes", b.pendingBytes)

	b.pending = nil
	b.pendingBytes = 0
	b.openedAt = time.Now()

	resp, err := b.putWithRetry(ctx, batch)
	if err != nil {
		b.stats.FailedEvents += len(batch)
		return err
	}

	rejected := countRejected(resp.RejectedLogEventsInfo, len(batch), b.logger)
	b.stats.SuccessfulEvents += max(0, len(batch)-rejected)
	b.stats.FailedEvents += max(0, rejected)
	return nil
}

// putWithRetry calls PutLogEvents up to three times, doubling the delay
// between attempts (capped at 30s), the same policy Vector applies to
// throttled sinks.
func (b *eventBatcher) putWithRetry(ctx context.Context, batch []types.InputLogEvent) (*cloudwatchlogs.PutLogEventsOutput, error) {
	const maxAttempts = 3
	retryDelay := time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := b.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(b.logGroup),
			LogStreamName: aws.String(b.logStream),
			LogEvents:     batch,
		})
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if attempt < maxAttempts {
			b.logger.Warn("CloudWatch API error, retrying",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"delay", retryDelay,
				"error", err)
			time.Sleep(retryDelay)
			retryDelay = min(retryDelay*2, 30*time.Second)
		}
	}

	b.logger.Error("failed after max retries", "error", lastErr)
	return nil, fmt.Errorf("failed to deliver batch after %d attempts: %w", maxAttempts, lastErr)
}

// countRejected sums the events the service refused: too new, too old,
// or past retention.
func countRejected(info *types.RejectedLogEventsInfo, batchLen int, logger *slog.Logger) int {
	if info == nil {
		return 0
	}

	rejected := 0
	if info.TooNewLogEventStartIndex != nil {
		rejected += batchLen - int(*info.TooNewLogEventStartIndex)
		logger.Warn("some events were too new", "index", *info.TooNewLogEventStartIndex)
	}
	if info.TooOldLogEventEndIndex != nil {
		rejected += int(*info.TooOldLogEventEndIndex) + 1
		logger.Warn("some events were too old", "index", *info.TooOldLogEventEndIndex)
	}
	if info.ExpiredLogEventEndIndex != nil {
		rejected += int(*info.ExpiredLogEventEndIndex) + 1
		logger.Warn("some events were expired", "index", *info.ExpiredLogEventEndIndex)
	}
	return rejected
}
