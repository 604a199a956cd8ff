package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/openshift/rosa-log-ingestor/internal/models"
)

// DynamoDBQueryAPI defines the interface for DynamoDB query operations
type DynamoDBQueryAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ConfigManager handles tenant configuration retrieval from DynamoDB
type ConfigManager struct {
	client    DynamoDBQueryAPI
	tableName string
	logger    *slog.Logger
}

// NewConfigManager creates a new tenant configuration manager
func NewConfigManager(client DynamoDBQueryAPI, tableName string, logger *slog.Logger) *ConfigManager {
	return &ConfigManager{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// GetTenantDeliveryConfigs looks up every enabled destination a tenant
// has registered in DynamoDB. tenantID is the S3 key's namespace
// segment (ExtractInfoFromKey); an empty value means the key itself
// was malformed and the lookup is skipped rather than sent to DynamoDB,
// since DynamoDB rejects empty partition key values with a
// ValidationException that would otherwise look like a transient
// failure.
func (cm *ConfigManager) GetTenantDeliveryConfigs(ctx context.Context, tenantID string) ([]*models.DeliveryConfig, error) {
	if tenantID == "" {
		cm.logger.Warn("refusing DynamoDB lookup for empty tenant_id, S3 key was malformed")
		return nil, models.NewTenantNotFoundError(tenantID, "invalid tenant_id (empty string) from malformed S3 path")
	}

	items, err := cm.queryByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, models.NewTenantNotFoundError(tenantID, "no delivery configurations found for tenant")
	}

	enabled, err := cm.enabledConfigs(items, tenantID)
	if err != nil {
		return nil, err
	}
	if len(enabled) == 0 {
		return nil, models.NewTenantNotFoundError(tenantID, "no enabled delivery configurations found for tenant")
	}

	cm.logConfigs(tenantID, enabled)
	return enabled, nil
}

// queryByTenantID runs the partition-key query against the tenant
// table and surfaces the empty-string ValidationException as a
// not-found rather than a recoverable error, since a second attempt
// against DynamoDB would fail identically.
func (cm *ConfigManager) queryByTenantID(ctx context.Context, tenantID string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(cm.tableName),
		KeyConditionExpression: aws.String("tenant_id = :tenant_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tenant_id": &types.AttributeValueMemberS{Value: tenantID},
		},
	}

	result, err := cm.client.Query(ctx, input)
	if err != nil {
		if strings.Contains(err.Error(), "ValidationException") && strings.Contains(err.Error(), "empty string value") {
			cm.logger.Warn("DynamoDB rejected empty-string tenant_id", "tenant_id", tenantID)
			return nil, models.NewTenantNotFoundError(tenantID, "invalid tenant_id (empty string) from malformed S3 path")
		}
		cm.logger.Error("failed to query DynamoDB for tenant configs", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("failed to get tenant delivery configurations for %s: %w", tenantID, err)
	}
	return result.Items, nil
}

// enabledConfigs unmarshals the raw DynamoDB items and keeps only the
// ones with Enabled set (defaulting to true for items predating that
// attribute), validating each against its delivery type's required
// fields along the way.
func (cm *ConfigManager) enabledConfigs(items []map[string]types.AttributeValue, tenantID string) ([]*models.DeliveryConfig, error) {
	enabled := make([]*models.DeliveryConfig, 0, len(items))
	for _, item := range items {
		var config models.DeliveryConfig
		if err := attributevalue.UnmarshalMap(item, &config); err != nil {
			cm.logger.Error("failed to unmarshal delivery config", "tenant_id", tenantID, "error", err)
			continue
		}
		if item["enabled"] == nil {
			config.Enabled = true
		}
		if !config.Enabled {
			continue
		}
		if err := ValidateTenantDeliveryConfig(&config, tenantID); err != nil {
			return nil, err
		}
		enabled = append(enabled, &config)
	}
	return enabled, nil
}

// logConfigs emits one summary line and, for configs that restrict
// which applications they accept, one detail line naming the filter.
func (cm *ConfigManager) logConfigs(tenantID string, configs []*models.DeliveryConfig) {
	deliveryTypes := make([]string, len(configs))
	for i, config := range configs {
		deliveryTypes[i] = config.Type
	}
	cm.logger.Info("retrieved enabled delivery configs for tenant",
		"tenant_id", tenantID, "count", len(configs), "types", deliveryTypes)

	for _, config := range configs {
		if len(config.DesiredLogs) > 0 || len(config.Groups) > 0 {
			cm.logger.Info("delivery config with filtering",
				"type", config.Type, "desired_logs", config.DesiredLogs, "groups", config.Groups)
		} else {
			cm.logger.Info("delivery config without filtering, all applications processed", "type", config.Type)
		}
	}
}
