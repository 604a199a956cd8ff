// Package routing composes the tenant lookup, desired-logs filtering,
// and concrete delivery destinations into the Sink the ingestor core
// forwards records to. It is the only place the generic ingestor
// pipeline (internal/ingestor) meets the domain-specific notion of a
// "tenant" and its configured destinations.
package routing

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	awsmetrics "github.com/openshift/rosa-log-ingestor/internal/aws"
	"github.com/openshift/rosa-log-ingestor/internal/delivery"
	"github.com/openshift/rosa-log-ingestor/internal/models"
	"github.com/openshift/rosa-log-ingestor/internal/record"
	"github.com/openshift/rosa-log-ingestor/internal/tenant"
)

// Sink fans one S3 object's enriched records out to every enabled,
// desired-logs-matching destination configured for its tenant. It
// satisfies ingestor.Sink. A single Sink instance is reused across
// objects; Send/Close always alternate one object at a time, matching
// the ingestor's single cooperative task per queue.
type Sink struct {
	tenantConfig *tenant.ConfigManager
	cwDeliverer  *delivery.CloudWatchDeliverer
	s3Deliverer  *delivery.S3Deliverer
	metrics      *awsmetrics.MetricsPublisher
	logger       *slog.Logger

	batch *objectBatch
}

// objectBatch accumulates the records belonging to one S3 object until
// Close flushes them to every matching destination.
type objectBatch struct {
	bucket, object string
	tenantInfo     *models.TenantInfo
	configs        []*models.DeliveryConfig
	cwRecords      []*record.Record
	lookupFailed   bool
}

// New builds a Sink from the concrete AWS clients cmd/ingestor wires
// up. dynamoClient, stsClient, and cwClient are the raw SDK clients;
// the sub-components (tenant.ConfigManager, CloudWatch/S3 deliverers,
// metrics publisher) are constructed here so callers only deal with
// one Sink.
func New(
	dynamoClient tenant.DynamoDBQueryAPI,
	stsClient *sts.Client,
	cwMetricsClient *cloudwatch.Client,
	tenantConfigTable, centralRoleArn, endpointURL string,
	s3UsePathStyle bool,
	logger *slog.Logger,
) *Sink {
	return &Sink{
		tenantConfig: tenant.NewConfigManager(dynamoClient, tenantConfigTable, logger),
		cwDeliverer:  delivery.NewCloudWatchDeliverer(stsClient, centralRoleArn, endpointURL, logger),
		s3Deliverer:  delivery.NewS3Deliverer(stsClient, centralRoleArn, s3UsePathStyle, endpointURL, logger),
		metrics:      awsmetrics.NewMetricsPublisher(cwMetricsClient, logger),
		logger:       logger,
	}
}

// Send buffers rec against the object it belongs to, starting a fresh
// batch (and running the tenant lookup) on the first record of each
// object.
func (s *Sink) Send(ctx context.Context, rec *record.Record) error {
	bucket, object := rec.Fields["bucket"], rec.Fields["object"]

	if s.batch == nil || s.batch.bucket != bucket || s.batch.object != object {
		s.batch = s.startBatch(ctx, bucket, object)
	}

	if s.batch.lookupFailed {
		return nil
	}

	for _, cfg := range s.batch.configs {
		if cfg.Type == "cloudwatch" && tenant.ShouldProcessApplication(cfg, s.batch.tenantInfo.Application, s.logger) {
			s.batch.cwRecords = append(s.batch.cwRecords, rec)
			break // one record list shared across every CloudWatch destination in Close
		}
	}

	return nil
}

// startBatch resolves the tenant for a new object and fetches its
// enabled delivery configurations. A tenant lookup failure (unknown
// tenant, malformed key, no enabled destinations) is not itself an
// ingestion failure: there is simply nothing desired for this object,
// so it is logged and treated as a zero-destination batch rather than
// failing the whole message.
func (s *Sink) startBatch(ctx context.Context, bucket, object string) *objectBatch {
	b := &objectBatch{bucket: bucket, object: object}

	info, err := tenant.ExtractInfoFromKey(object, s.logger)
	if err != nil {
		s.logger.Warn("could not extract tenant info from object key, skipping delivery", "object", object, "error", err)
		b.lookupFailed = true
		return b
	}
	b.tenantInfo = info

	configs, err := s.tenantConfig.GetTenantDeliveryConfigs(ctx, info.TenantID)
	if err != nil {
		s.logger.Warn("no delivery configuration for tenant, skipping delivery", "tenant_id", info.TenantID, "error", err)
		b.lookupFailed = true
		return b
	}
	b.configs = configs

	return b
}

// Close flushes the current object's batch to every destination its
// delivery configs named, publishes per-destination metrics, and
// reports the first destination's error iff a destination that matched
// desired-logs filtering failed to accept its records — the ingestor
// loop's ack decision is judged solely on that error.
func (s *Sink) Close(ctx context.Context) (delivery.Stats, error) {
	var stats delivery.Stats
	if s.batch == nil || s.batch.lookupFailed {
		s.batch = nil
		return stats, nil
	}
	b := s.batch
	s.batch = nil

	var firstErr error
	for _, cfg := range b.configs {
		if !tenant.ShouldProcessApplication(cfg, b.tenantInfo.Application, s.logger) {
			continue
		}

		switch cfg.Type {
		case "cloudwatch":
			if len(b.cwRecords) == 0 {
				continue
			}
			cwStats, err := s.cwDeliverer.DeliverLogs(ctx, b.cwRecords, cfg, b.tenantInfo, time.Now().UnixMilli())
			if err != nil {
				s.metrics.PushCloudWatchDeliveryMetrics(ctx, b.tenantInfo.TenantID, delivery.Stats{FailedRecords: len(b.cwRecords)})
				s.logger.Error("cloudwatch delivery failed", "tenant_id", b.tenantInfo.TenantID, "error", err)
				stats.FailedRecords += len(b.cwRecords)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			s.metrics.PushCloudWatchDeliveryMetrics(ctx, b.tenantInfo.TenantID, cwStats)
			stats.Add(cwStats)

		case "s3":
			if err := s.s3Deliverer.DeliverLogs(ctx, b.bucket, b.object, cfg, b.tenantInfo); err != nil {
				s.metrics.PushS3DeliveryMetrics(ctx, b.tenantInfo.TenantID, false)
				s.logger.Error("s3 delivery failed", "tenant_id", b.tenantInfo.TenantID, "error", err)
				stats.FailedRecords++
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			s.metrics.PushS3DeliveryMetrics(ctx, b.tenantInfo.TenantID, true)
			stats.SuccessfulRecords++

		default:
			s.logger.Warn("unknown delivery type, skipping", "type", cfg.Type, "tenant_id", b.tenantInfo.TenantID)
		}
	}

	return stats, firstErr
}
