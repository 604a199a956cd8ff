package tenant

import (
	"fmt"
	"strings"

	"github.com/openshift/rosa-log-ingestor/internal/models"
)

// ValidateTenantDeliveryConfig checks that a tenant's destination
// record carries every field its delivery type needs. It is run once
// per enabled config when ConfigManager loads a tenant, so a
// misconfigured destination is rejected at lookup time rather than
// surfacing as an opaque AWS API error mid-delivery.
func ValidateTenantDeliveryConfig(config *models.DeliveryConfig, tenantID string) error {
	if config.Type == "" {
		return models.NewTenantNotFoundError(tenantID, "delivery configuration missing 'type' field")
	}

	switch config.Type {
	case "cloudwatch":
		return requireFields(tenantID, "CloudWatch",
			field{"log_distribution_role_arn", config.LogDistributionRoleArn},
			field{"log_group_name", config.LogGroupName},
		)
	case "s3":
		return requireFields(tenantID, "S3",
			field{"bucket_name", config.BucketName},
		)
	default:
		return models.NewTenantNotFoundError(tenantID, fmt.Sprintf("invalid delivery type: %s", config.Type))
	}
}

// field pairs a delivery config field's name with its current value
// for requireFields to check.
type field struct {
	name, value string
}

// requireFields reports the first field in order whose value is empty
// or blank. Checking in a fixed order, rather than ranging over a map,
// keeps the rejection message deterministic across calls.
func requireFields(tenantID, deliveryType string, fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return models.NewTenantNotFoundError(tenantID,
				fmt.Sprintf("%s delivery config missing or has empty value for required field: %s", deliveryType, f.name))
		}
	}
	return nil
}
