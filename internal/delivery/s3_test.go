package delivery

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/openshift/rosa-log-ingestor/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeBucketPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"logs/", "logs/"},
		{"logs", "logs/"},
		{"ROSA/cluster-logs/", "ROSA/cluster-logs/"},
		{"ROSA/cluster-logs", "ROSA/cluster-logs/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeBucketPrefix(tt.input), "input %q", tt.input)
	}
}

func TestDestinationKey(t *testing.T) {
	info := &models.TenantInfo{
		TenantID:    "acme-corp",
		Application: "payment-service",
		PodName:     "payment-pod-123",
	}

	tests := []struct {
		name      string
		prefix    string
		sourceKey string
		want      string
	}{
		{
			name:      "default prefix",
			prefix:    "",
			sourceKey: "cluster-123/acme-corp/payment-service/payment-pod-123/2024-01-01-logs.json.gz",
			want:      "ROSA/cluster-logs/acme-corp/payment-service/payment-pod-123/2024-01-01-logs.json.gz",
		},
		{
			name:      "custom prefix",
			prefix:    "custom/path/",
			sourceKey: "cluster-123/acme-corp/payment-service/payment-pod-123/logs.json.gz",
			want:      "custom/path/acme-corp/payment-service/payment-pod-123/logs.json.gz",
		},
		{
			name:      "custom prefix without trailing slash",
			prefix:    "custom/path",
			sourceKey: "cluster-123/acme-corp/payment-service/payment-pod-123/logs.json.gz",
			want:      "custom/path/acme-corp/payment-service/payment-pod-123/logs.json.gz",
		},
		{
			name:      "source key without directories",
			prefix:    "logs/",
			sourceKey: "simple.json.gz",
			want:      "logs/acme-corp/payment-service/payment-pod-123/simple.json.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, destinationKey(tt.prefix, info, tt.sourceKey))
		})
	}
}

func TestDestinationKeyExcludesClusterID(t *testing.T) {
	info := &models.TenantInfo{
		ClusterID:   "cluster-mc-12345",
		TenantID:    "tenant-abc",
		Application: "app-xyz",
		PodName:     "pod-123",
	}

	key := destinationKey("", info, "cluster-mc-12345/tenant-abc/app-xyz/pod-123/logs.json.gz")

	assert.NotContains(t, key, "cluster-mc-12345",
		"destination key must not expose the management cluster ID")
	assert.Equal(t, "ROSA/cluster-logs/tenant-abc/app-xyz/pod-123/logs.json.gz", key)
}

func TestDeliveryMetadata(t *testing.T) {
	info := &models.TenantInfo{
		TenantID:    "acme-corp",
		Application: "payment-service",
		PodName:     "payment-pod-abc",
	}

	md := deliveryMetadata("central-logs", "cluster/acme-corp/payment-service/payment-pod-abc/logs.json.gz", info)

	assert.Equal(t, "central-logs", md["source-bucket"])
	assert.Equal(t, "cluster/acme-corp/payment-service/payment-pod-abc/logs.json.gz", md["source-key"])
	assert.Equal(t, "acme-corp", md["tenant-id"])
	assert.Equal(t, "payment-service", md["application"])
	assert.Equal(t, "payment-pod-abc", md["pod-name"])
	assert.NotEmpty(t, md["delivery-timestamp"])
}

func TestClassifyS3CopyError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		nonRecoverable bool
	}{
		{"no such bucket", &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "The specified bucket does not exist"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}, true},
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist"}, true},
		{"throttling", &smithy.GenericAPIError{Code: "SlowDown", Message: "Please reduce your request rate"}, false},
		{"service unavailable", &smithy.GenericAPIError{Code: "ServiceUnavailable", Message: "Service is temporarily unavailable"}, false},
		{"non-API error", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := classifyS3CopyError(tt.err, "central-bucket", "some/key", "customer-bucket")
			assert.Equal(t, tt.nonRecoverable, ok)
		})
	}
}

func TestClassifyS3CopyErrorMessages(t *testing.T) {
	msg, ok := classifyS3CopyError(&smithy.GenericAPIError{Code: "NoSuchBucket"}, "src-bucket", "src/key.gz", "dst-bucket")
	assert.True(t, ok)
	assert.Contains(t, msg, "dst-bucket")

	msg, ok = classifyS3CopyError(&smithy.GenericAPIError{Code: "NoSuchKey"}, "src-bucket", "src/key.gz", "dst-bucket")
	assert.True(t, ok)
	assert.Contains(t, msg, "src-bucket/src/key.gz")
}
