package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/openshift/rosa-log-ingestor/internal/models"
)

// defaultBucketPrefix is used when a tenant's delivery config names no
// prefix of its own.
const defaultBucketPrefix = "ROSA/cluster-logs/"

// S3Deliverer copies a tenant's log objects from the central bucket into
// the customer-owned bucket named by its delivery config. Unlike the
// CloudWatch path this is single-hop: the customer bucket policy grants
// the central role PutObject directly.
type S3Deliverer struct {
	stsClient      *sts.Client
	centralRoleArn string
	usePathStyle   bool
	endpointURL    string
	logger         *slog.Logger
}

// NewS3Deliverer creates a new S3 deliverer.
func NewS3Deliverer(stsClient *sts.Client, centralRoleArn string, usePathStyle bool, endpointURL string, logger *slog.Logger) *S3Deliverer {
	return &S3Deliverer{
		stsClient:      stsClient,
		centralRoleArn: centralRoleArn,
		usePathStyle:   usePathStyle,
		endpointURL:    endpointURL,
		logger:         logger,
	}
}

// DeliverLogs server-side copies s3://sourceBucket/sourceKey into the
// customer's bucket under the tenant-scoped destination key.
func (d *S3Deliverer) DeliverLogs(ctx context.Context, sourceBucket, sourceKey string, deliveryConfig *models.DeliveryConfig, tenantInfo *models.TenantInfo) error {
	d.logger.Info("starting S3-to-S3 copy for tenant",
		"tenant_id", tenantInfo.TenantID,
		"source_bucket", sourceBucket,
		"source_key", sourceKey)

	centralRoleResp, err := d.stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(d.centralRoleArn),
		RoleSessionName: aws.String(fmt.Sprintf("S3LogDelivery-%d", time.Now().UnixNano())),
	})
	if err != nil {
		return fmt.Errorf("failed to assume central log distribution role: %w", err)
	}

	targetRegion := deliveryConfig.TargetRegion
	if targetRegion == "" {
		targetRegion = "us-east-1"
	}

	s3Config, err := assumedRoleConfig(ctx, targetRegion, aws.Credentials{
		AccessKeyID:     *centralRoleResp.Credentials.AccessKeyId,
		SecretAccessKey: *centralRoleResp.Credentials.SecretAccessKey,
		SessionToken:    *centralRoleResp.Credentials.SessionToken,
	}, d.endpointURL)
	if err != nil {
		return fmt.Errorf("failed to create S3 config: %w", err)
	}

	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.UsePathStyle = d.usePathStyle
	})

	destKey := destinationKey(deliveryConfig.BucketPrefix, tenantInfo, sourceKey)
	d.logger.Info("S3 copy details",
		"source", fmt.Sprintf("s3://%s/%s", sourceBucket, sourceKey),
		"destination", fmt.Sprintf("s3://%s/%s", deliveryConfig.BucketName, destKey))

	// bucket-owner-full-control plus MetadataDirective REPLACE: the
	// customer owns the copy and the traceability metadata survives it.
	_, err = s3Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(deliveryConfig.BucketName),
		Key:               aws.String(destKey),
		CopySource:        aws.String(sourceBucket + "/" + sourceKey),
		ACL:               types.ObjectCannedACLBucketOwnerFullControl,
		Metadata:          deliveryMetadata(sourceBucket, sourceKey, tenantInfo),
		MetadataDirective: types.MetadataDirectiveReplace,
	})

	if err != nil {
		if nonRecoverableMsg, ok := classifyS3CopyError(err, sourceBucket, sourceKey, deliveryConfig.BucketName); ok {
			return models.NewNonRecoverableError(nonRecoverableMsg)
		}

		// Anything else (throttling, transient network errors) is
		// treated as recoverable so the caller retries the whole message.
		d.logger.Error("S3 copy operation failed", "error", err)
		return fmt.Errorf("S3 copy failed: %w", err)
	}

	d.logger.Info("successfully copied log file to S3",
		"tenant_id", tenantInfo.TenantID,
		"destination", fmt.Sprintf("s3://%s/%s", deliveryConfig.BucketName, destKey))

	return nil
}

// destinationKey places the copied object under
// {prefix}{tenant_id}/{application}/{pod_name}/{filename}. The source
// key's cluster_id segment is deliberately dropped: the destination is
// customer-owned and must not learn the management cluster's identity.
func destinationKey(bucketPrefix string, tenantInfo *models.TenantInfo, sourceKey string) string {
	if bucketPrefix == "" {
		bucketPrefix = defaultBucketPrefix
	}
	bucketPrefix = normalizeBucketPrefix(bucketPrefix)

	sourceFilename := sourceKey[strings.LastIndex(sourceKey, "/")+1:]
	return fmt.Sprintf("%s%s/%s/%s/%s",
		bucketPrefix,
		tenantInfo.TenantID,
		tenantInfo.Application,
		tenantInfo.PodName,
		sourceFilename)
}

// deliveryMetadata is attached to the copied object for traceability
// back to the central bucket.
func deliveryMetadata(sourceBucket, sourceKey string, tenantInfo *models.TenantInfo) map[string]string {
	return map[string]string{
		"source-bucket":      sourceBucket,
		"source-key":         sourceKey,
		"tenant-id":          tenantInfo.TenantID,
		"application":        tenantInfo.Application,
		"pod-name":           tenantInfo.PodName,
		"delivery-timestamp": fmt.Sprintf("%d", time.Now().Unix()),
	}
}

// classifyS3CopyError inspects a failed CopyObject error for the AWS
// error codes that mean retrying would never succeed: the destination
// bucket or source object is gone, or the central role lacks
// permission. ok is false for anything else (throttling, transient
// network errors), which the caller should treat as recoverable.
func classifyS3CopyError(err error, sourceBucket, sourceKey, destinationBucket string) (msg string, ok bool) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}

	switch apiErr.ErrorCode() {
	case "NoSuchBucket":
		return fmt.Sprintf("destination S3 bucket '%s' does not exist", destinationBucket), true
	case "AccessDenied":
		return fmt.Sprintf("access denied to S3 bucket '%s'. Check bucket policy and Central Role permissions", destinationBucket), true
	case "NoSuchKey":
		return fmt.Sprintf("source S3 object s3://%s/%s not found", sourceBucket, sourceKey), true
	default:
		return "", false
	}
}

// normalizeBucketPrefix ensures a non-empty bucket prefix ends with a slash.
func normalizeBucketPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
