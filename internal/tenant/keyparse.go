package tenant

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/openshift/rosa-log-ingestor/internal/models"
)

// ExtractInfoFromKey derives tenant identity from an S3 object key.
// Vector writes objects under cluster_id/namespace/application/pod_name/file,
// and the namespace segment doubles as the tenant ID used to look up
// delivery configuration in DynamoDB.
func ExtractInfoFromKey(objectKey string, logger *slog.Logger) (*models.TenantInfo, error) {
	pathParts := strings.Split(objectKey, "/")

	if len(pathParts) < 5 {
		return nil, models.NewInvalidObjectKeyError(
			fmt.Sprintf("invalid object key format. Expected at least 5 path segments, got %d: %s", len(pathParts), objectKey))
	}

	requiredSegments := []struct {
		name  string
		index int
	}{
		{"cluster_id", 0},
		{"namespace", 1},
		{"application", 2},
		{"pod_name", 3},
	}

	for _, segment := range requiredSegments {
		if strings.TrimSpace(pathParts[segment.index]) == "" {
			return nil, models.NewInvalidObjectKeyError(
				fmt.Sprintf("invalid object key format. %s (segment %d) cannot be empty: %s",
					segment.name, segment.index, objectKey))
		}
	}

	info := &models.TenantInfo{
		ClusterID:   pathParts[0],
		Namespace:   pathParts[1],
		TenantID:    pathParts[1],
		Application: pathParts[2],
		PodName:     pathParts[3],
		Environment: "production",
	}

	if strings.Contains(info.ClusterID, "-") {
		envPrefix := strings.Split(info.ClusterID, "-")[0]
		envMap := map[string]string{
			"prod": "production",
			"stg":  "staging",
			"dev":  "development",
		}
		if env, ok := envMap[envPrefix]; ok {
			info.Environment = env
		}
	}

	logger.Info("extracted tenant info from S3 key",
		"object_key", objectKey,
		"cluster_id", info.ClusterID,
		"namespace", info.Namespace,
		"tenant_id", info.TenantID,
		"application", info.Application,
		"pod_name", info.PodName)

	return info, nil
}
