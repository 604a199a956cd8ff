package models

import (
	"log/slog"
	"os"
	"slices"
)

// TenantInfo is the identity derived from an S3 object key's path
// segments. The namespace doubles as the tenant ID for the DynamoDB
// delivery-config lookup.
type TenantInfo struct {
	ClusterID   string `json:"cluster_id"`
	Namespace   string `json:"namespace"`
	TenantID    string `json:"tenant_id"`
	Application string `json:"application"`
	PodName     string `json:"pod_name"`
	Environment string `json:"environment"`
}

// DeliveryConfig is one destination row from the tenant configuration
// table. Type selects the destination kind ("cloudwatch" or "s3") and
// determines which of the remaining fields are required.
type DeliveryConfig struct {
	TenantID               string   `json:"tenant_id" dynamodbav:"tenant_id"`
	Type                   string   `json:"type" dynamodbav:"type"`
	Enabled                bool     `json:"enabled" dynamodbav:"enabled"`
	TargetRegion           string   `json:"target_region,omitempty" dynamodbav:"target_region,omitempty"`
	DesiredLogs            []string `json:"desired_logs,omitempty" dynamodbav:"desired_logs,omitempty"`
	Groups                 []string `json:"groups,omitempty" dynamodbav:"groups,omitempty"`
	LogDistributionRoleArn string   `json:"log_distribution_role_arn,omitempty" dynamodbav:"log_distribution_role_arn,omitempty"`
	LogGroupName           string   `json:"log_group_name,omitempty" dynamodbav:"log_group_name,omitempty"`
	BucketName             string   `json:"bucket_name,omitempty" dynamodbav:"bucket_name,omitempty"`
	BucketPrefix           string   `json:"bucket_prefix,omitempty" dynamodbav:"bucket_prefix,omitempty"`
}

// ApplicationEnabled reports whether applicationName passes this
// config's desired_logs list alone. An absent or effectively-empty list
// enables every application. Group expansion is layered on top by
// tenant.ShouldProcessApplication.
func (c *DeliveryConfig) ApplicationEnabled(applicationName string) bool {
	if len(c.DesiredLogs) == 0 {
		return true
	}
	if len(c.DesiredLogs) == 1 && c.DesiredLogs[0] == "" {
		return true
	}
	return slices.Contains(c.DesiredLogs, applicationName)
}

// LogEvent is one CloudWatch Logs event before wire conversion. Both
// fields keep the loose types the NDJSON source can produce: Timestamp
// an int64/float64/ISO string (nil when the record had none), Message a
// string or arbitrary JSON object.
type LogEvent struct {
	Timestamp interface{} `json:"timestamp"`
	Message   interface{} `json:"message"`
}

// ApplicationGroups maps a named group of related OpenShift
// control-plane components to the application names that make it up, so
// a tenant's delivery config can opt into "API" instead of enumerating
// every apiserver variant.
var ApplicationGroups = map[string][]string{
	"API":                {"kube-apiserver", "openshift-apiserver"},
	"Authentication":     {"oauth-openshift", "openshift-oauth-apiserver"},
	"Scheduler":          {"kube-scheduler"},
	"Controller Manager": {"kube-controller-manager", "openshift-controller-manager", "openshift-route-controller-manager"},
}

// VectorMetadataFields are the Vector enrichment fields stripped when a
// record without a message field falls back to delivering the whole
// cleaned object.
var VectorMetadataFields = map[string]bool{
	"cluster_id":       true,
	"namespace":        true,
	"application":      true,
	"pod_name":         true,
	"ingest_timestamp": true,
	"timestamp":        true,
	"kubernetes":       true,
}

// NewDefaultLogger creates a text-handler logger for tests.
func NewDefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
