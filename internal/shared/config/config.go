package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"logileet/internal/shared/models"
)

// LoadConfig reads a minimal yaml-style config file: two-level sections,
// "key: value" pairs, and ${ENV_VAR:-default} expansion on values.
func LoadConfig(filename string) (*models.Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := &models.Config{}
	var section string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !strings.Contains(line, ":") {
			continue
		}

		if strings.HasSuffix(line, ":") {
			section = strings.TrimSuffix(line, ":")
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := expandEnv(strings.TrimSpace(parts[1]))

		switch section {
		case "server":
			if key == "port" {
				cfg.Server.Port = val
			}
		case "database":
			switch key {
			case "host":
				cfg.Database.Host = val
			case "port":
				cfg.Database.Port = val
			case "user":
				cfg.Database.User = val
			case "password":
				cfg.Database.Password = val
			case "database":
				cfg.Database.Database = val
			}
		case "rabbitmq":
			switch key {
			case "host":
				cfg.RabbitMQ.Host = val
			case "port":
				cfg.RabbitMQ.Port = val
			case "user":
				cfg.RabbitMQ.User = val
			case "password":
				cfg.RabbitMQ.Password = val
			}
		case "jwt":
			switch key {
			case "secret":
				cfg.JWT.Secret = val
			case "ttl_hours":
				cfg.JWT.TTLHours = atoiOr(val, 168)
			}
		case "routing":
			switch key {
			case "base_url":
				cfg.Routing.BaseURL = val
			case "api_key":
				cfg.Routing.APIKey = val
			case "timeout_seconds":
				cfg.Routing.TimeoutSeconds = atoiOr(val, 5)
			}
		case "tracking":
			switch key {
			case "retention_days":
				cfg.Tracking.RetentionDays = atoiOr(val, 30)
			case "sweep_interval_minutes":
				cfg.Tracking.SweepIntervalMinutes = atoiOr(val, 60)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func expandEnv(val string) string {
	if !strings.HasPrefix(val, "${") || !strings.HasSuffix(val, "}") {
		return val
	}

	inside := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
	parts := strings.SplitN(inside, ":-", 2)

	envVar := parts[0]
	defVal := ""
	if len(parts) == 2 {
		defVal = parts[1]
	}

	if v, ok := os.LookupEnv(envVar); ok {
		return v
	}
	return defVal
}

func atoiOr(val string, def int) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
