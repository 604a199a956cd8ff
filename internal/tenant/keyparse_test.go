package tenant

import (
	"testing"

	"github.com/openshift/rosa-log-ingestor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractInfoFromKeySuccess(t *testing.T) {
	logger := models.NewDefaultLogger()

	info, err := ExtractInfoFromKey("prod-cluster-abc123/acme-corp/payment-service/pod-xyz/app.log", logger)

	require.NoError(t, err)
	assert.Equal(t, "prod-cluster-abc123", info.ClusterID)
	assert.Equal(t, "acme-corp", info.Namespace)
	assert.Equal(t, "acme-corp", info.TenantID)
	assert.Equal(t, "payment-service", info.Application)
	assert.Equal(t, "pod-xyz", info.PodName)
	assert.Equal(t, "production", info.Environment)
}

func TestExtractInfoFromKeyEnvironmentPrefixes(t *testing.T) {
	logger := models.NewDefaultLogger()

	cases := map[string]string{
		"prod-cluster-1": "production",
		"stg-cluster-1":  "staging",
		"dev-cluster-1":  "development",
		"qa-cluster-1":   "production", // unrecognized prefix keeps the default
	}

	for clusterID, expected := range cases {
		info, err := ExtractInfoFromKey(clusterID+"/ns/app/pod/file.log", logger)
		require.NoError(t, err)
		assert.Equal(t, expected, info.Environment, "cluster id %q", clusterID)
	}
}

func TestExtractInfoFromKeyTooFewSegments(t *testing.T) {
	logger := models.NewDefaultLogger()

	_, err := ExtractInfoFromKey("cluster/namespace/app", logger)

	require.Error(t, err)
	assert.True(t, models.IsNonRecoverable(err))
}

func TestExtractInfoFromKeyEmptySegment(t *testing.T) {
	logger := models.NewDefaultLogger()

	_, err := ExtractInfoFromKey("cluster//app/pod/file.log", logger)

	require.Error(t, err)
}
