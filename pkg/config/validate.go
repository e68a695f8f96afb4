// Package config loads and validates service configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidateCore ensures critical configuration is present.
func (c *Config) ValidateCore() error {
	var missing []string

	if strings.TrimSpace(c.Database.URL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		missing = append(missing, "REDIS_URL")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change-this-secret" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.ProfitAccrualSchedule); err != nil {
			missing = append(missing, "PROFIT_ACCRUAL_SCHEDULE")
		}
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		missing = append(missing, "ADMIN_EMAIL/ADMIN_PASSWORD")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
