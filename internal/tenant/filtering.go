package tenant

import (
	"log/slog"
	"strings"

	"github.com/openshift/rosa-log-ingestor/internal/models"
)

// ExpandGroupsToApplications resolves each named group in groups to its
// member applications via models.ApplicationGroups, matching group
// names case-insensitively. A name with no matching group contributes
// nothing and is logged, not treated as an error, since an operator
// typo in a group name should narrow delivery rather than fail it.
func ExpandGroupsToApplications(groups []string, logger *slog.Logger) []string {
	var applications []string

	for _, group := range groups {
		if group == "" {
			logger.Warn("empty group name in groups list, skipping")
			continue
		}

		members, found := lookupGroup(group)
		if !found {
			logger.Warn("group not found in configured application groups",
				"group", group, "available_groups", knownGroupNames())
			continue
		}

		applications = append(applications, members...)
		logger.Info("expanded group to applications", "group", group, "applications", members)
	}

	return applications
}

// lookupGroup case-insensitively matches name against the configured
// group names.
func lookupGroup(name string) (members []string, found bool) {
	for key, apps := range models.ApplicationGroups {
		if strings.EqualFold(key, name) {
			return apps, true
		}
	}
	return nil, false
}

func knownGroupNames() []string {
	names := make([]string, 0, len(models.ApplicationGroups))
	for k := range models.ApplicationGroups {
		names = append(names, k)
	}
	return names
}

// ShouldProcessApplication reports whether applicationName passes the
// desired_logs/groups filter on config. An empty filter (neither field
// set, or both resolving to no applications) processes every
// application — a tenant with no filtering configured wants everything
// it receives delivered, not nothing.
func ShouldProcessApplication(config *models.DeliveryConfig, applicationName string, logger *slog.Logger) bool {
	if len(config.DesiredLogs) == 0 && len(config.Groups) == 0 {
		return true
	}

	allowed := allowedApplicationSet(config, logger)
	if len(allowed) == 0 {
		logger.Warn("no valid applications found in desired_logs or groups, processing all applications")
		return true
	}

	shouldProcess := allowed[applicationName]
	if shouldProcess {
		logger.Info("application matches filtering criteria, will process", "application", applicationName)
	} else {
		logger.Info("application does not match filtering criteria, will skip", "application", applicationName)
	}
	return shouldProcess
}

// allowedApplicationSet merges config's explicit desired_logs names
// with every application reachable through config's groups.
func allowedApplicationSet(config *models.DeliveryConfig, logger *slog.Logger) map[string]bool {
	allowed := make(map[string]bool)

	for _, app := range config.DesiredLogs {
		if app != "" {
			allowed[app] = true
		}
	}

	for _, app := range ExpandGroupsToApplications(config.Groups, logger) {
		allowed[app] = true
	}

	return allowed
}
