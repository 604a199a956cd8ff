package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicationEnabled(t *testing.T) {
	tests := []struct {
		name        string
		desiredLogs []string
		application string
		want        bool
	}{
		{"listed application", []string{"payment-service", "user-service"}, "payment-service", true},
		{"unlisted application", []string{"payment-service", "user-service"}, "admin-service", false},
		{"matching is case sensitive", []string{"payment-service"}, "Payment-Service", false},
		{"nil filter allows everything", nil, "any-service", true},
		{"empty filter allows everything", []string{}, "any-service", true},
		{"single empty entry allows everything", []string{""}, "any-service", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &DeliveryConfig{
				TenantID:    "test-tenant",
				Type:        "cloudwatch",
				DesiredLogs: tt.desiredLogs,
			}
			assert.Equal(t, tt.want, config.ApplicationEnabled(tt.application))
		})
	}
}
