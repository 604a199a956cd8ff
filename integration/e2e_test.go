//go:build integration
// +build integration

package integration

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testClusterID = "prod-cluster-01"

// ndjsonLine builds one Vector-style NDJSON log line.
func ndjsonLine(timestampMS int64, message string) string {
	return fmt.Sprintf(`{"timestamp": %d, "message": %q}`, timestampMS, message)
}

func TestCloudWatchDeliveryEndToEnd(t *testing.T) {
	h := NewHarness(t)
	logGroup := h.PutCloudWatchTenantConfig("globex-industries", nil)
	h.StartIngestor()

	key := testClusterID + "/globex-industries/platform-api/platform-api-7d9f/2026-01-01.ndjson.gz"
	base := int64(1767225600000)
	lines := []string{
		ndjsonLine(base, "request handled in 12ms"),
		ndjsonLine(base+1000, "request handled in 9ms"),
		ndjsonLine(base+2000, "request handled in 31ms"),
	}
	h.UploadLogObject(key, lines)
	h.SendObjectCreatedNotification(key)

	h.WaitForLogMessages(logGroup, []string{
		"request handled in 12ms",
		"request handled in 9ms",
		"request handled in 31ms",
	})
	h.WaitForEmptyQueue()
}

func TestS3CopyDeliveryEndToEnd(t *testing.T) {
	h := NewHarness(t)
	customerBucket := h.PutS3TenantConfig("acme-corp", "logs/")
	h.StartIngestor()

	key := testClusterID + "/acme-corp/payment-service/payment-pod-42/2026-01-01.ndjson.gz"
	base := int64(1767225600000)
	lines := []string{
		ndjsonLine(base, "charge accepted"),
		ndjsonLine(base+500, "charge settled"),
	}
	h.UploadLogObject(key, lines)
	h.SendObjectCreatedNotification(key)

	// The S3 path copies the original object byte-for-byte, so the
	// gunzipped copy must contain the exact uploaded lines.
	copied := h.WaitForCopiedObject(customerBucket,
		"logs/acme-corp/payment-service/payment-pod-42/2026-01-01.ndjson.gz")
	for _, line := range lines {
		assert.Contains(t, string(copied), line)
	}
	h.WaitForEmptyQueue()
}

func TestDesiredLogsFilteringEndToEnd(t *testing.T) {
	h := NewHarness(t)
	logGroup := h.PutCloudWatchTenantConfig("globex-industries", []string{"platform-api"})
	h.StartIngestor()

	// An object from an application outside desired_logs: processed and
	// acked, but nothing delivered.
	key := testClusterID + "/globex-industries/debug-sidecar/debug-pod-1/noise.ndjson.gz"
	h.UploadLogObject(key, []string{ndjsonLine(1767225600000, "noisy debug line")})
	h.SendObjectCreatedNotification(key)
	h.WaitForEmptyQueue()

	// The desired application still flows through on the same ingestor.
	key = testClusterID + "/globex-industries/platform-api/platform-api-7d9f/wanted.ndjson.gz"
	h.UploadLogObject(key, []string{ndjsonLine(1767225601000, "wanted line")})
	h.SendObjectCreatedNotification(key)

	h.WaitForLogMessages(logGroup, []string{"wanted line"})
	h.WaitForEmptyQueue()
}

func TestUnknownTenantStillAcks(t *testing.T) {
	h := NewHarness(t)
	h.StartIngestor()

	// No delivery config exists for this tenant: the object has no
	// destinations, which is not an ingestion failure, so the message
	// must still be deleted rather than redelivered forever.
	key := testClusterID + "/unknown-tenant/some-app/some-pod/logs.ndjson.gz"
	h.UploadLogObject(key, []string{ndjsonLine(1767225600000, "orphaned line")})
	h.SendObjectCreatedNotification(key)

	h.WaitForEmptyQueue()
}

func TestMissingObjectLeavesMessageForRedelivery(t *testing.T) {
	h := NewHarness(t)
	h.PutCloudWatchTenantConfig("globex-industries", nil)
	h.StartIngestor()

	// Notification for an object that was never uploaded: GetObject
	// fails, so the ingestor must not delete the message.
	h.SendObjectCreatedNotification(testClusterID + "/globex-industries/platform-api/pod/missing.ndjson.gz")

	// Give the loop a few polls to receive and fail the message, then
	// confirm it is still visible or in flight.
	time.Sleep(4 * pollInterval)
	h.RequireQueueNotEmpty()
}
