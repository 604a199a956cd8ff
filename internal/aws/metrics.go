// Package aws publishes per-tenant delivery metrics to CloudWatch.
package aws

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/openshift/rosa-log-ingestor/internal/delivery"
)

// MetricsNamespace is the CloudWatch namespace log ingestion delivery
// metrics are published under.
const MetricsNamespace = "ROSA/LogIngestion"

// CloudWatchMetricsAPI is the subset of the CloudWatch client the
// publisher depends on.
type CloudWatchMetricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisher records delivery outcomes as CloudWatch metrics,
// dimensioned per tenant.
type MetricsPublisher struct {
	client CloudWatchMetricsAPI
	logger *slog.Logger
}

// NewMetricsPublisher creates a new metrics publisher.
func NewMetricsPublisher(client CloudWatchMetricsAPI, logger *slog.Logger) *MetricsPublisher {
	return &MetricsPublisher{client: client, logger: logger}
}

// PushMetrics publishes one datum per entry of metricsData, named
// LogCount/{method}/{key} and dimensioned on the tenant. method is the
// destination type ("cloudwatch" or "s3").
func (p *MetricsPublisher) PushMetrics(ctx context.Context, tenantID, method string, metricsData map[string]float64) error {
	if len(metricsData) == 0 {
		p.logger.Debug("no metrics to push")
		return nil
	}

	metricData := make([]types.MetricDatum, 0, len(metricsData))
	for name, value := range metricsData {
		metricData = append(metricData, tenantDatum(tenantID, method, name, value))
	}

	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(MetricsNamespace),
		MetricData: metricData,
	})
	if err != nil {
		p.logger.Error("failed to publish metric to CloudWatch",
			"tenant_id", tenantID, "method", method, "error", err)
		return fmt.Errorf("failed to publish metrics: %w", err)
	}

	p.logger.Debug("successfully published metrics to CloudWatch",
		"tenant_id", tenantID, "method", method, "metric_count", len(metricData))
	return nil
}

func tenantDatum(tenantID, method, name string, value float64) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(fmt.Sprintf("LogCount/%s/%s", method, name)),
		Dimensions: []types.Dimension{
			{Name: aws.String("Tenant"), Value: aws.String(tenantID)},
		},
		Value: aws.Float64(value),
		Unit:  types.StandardUnitCount,
	}
}

// PushCloudWatchDeliveryMetrics records one CloudWatch Logs delivery
// outcome for tenantID, as reported by a routing.Sink flush. Publish
// failures are logged, never surfaced: metrics must not affect the ack
// decision.
func (p *MetricsPublisher) PushCloudWatchDeliveryMetrics(ctx context.Context, tenantID string, stats delivery.Stats) {
	metrics := map[string]float64{
		"successful_records": float64(stats.SuccessfulRecords),
		"failed_records":     float64(stats.FailedRecords),
	}

	if stats.SuccessfulRecords > 0 || stats.FailedRecords > 0 {
		if stats.FailedRecords == 0 {
			metrics["successful_delivery"] = 1
		} else {
			metrics["failed_delivery"] = 1
		}
	}

	if err := p.PushMetrics(ctx, tenantID, "cloudwatch", metrics); err != nil {
		p.logger.Error("failed to write metrics to CloudWatch for CloudWatch delivery",
			"tenant_id", tenantID, "error", err)
	}
}

// PushS3DeliveryMetrics records one S3 copy outcome for tenantID.
func (p *MetricsPublisher) PushS3DeliveryMetrics(ctx context.Context, tenantID string, success bool) {
	metrics := map[string]float64{"failed_delivery": 1}
	if success {
		metrics = map[string]float64{"successful_delivery": 1}
	}

	if err := p.PushMetrics(ctx, tenantID, "s3", metrics); err != nil {
		p.logger.Error("failed to write metrics to CloudWatch for S3 delivery",
			"tenant_id", tenantID, "error", err)
	}
}
