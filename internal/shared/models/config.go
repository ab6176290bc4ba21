package models

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig
	Routing  RoutingConfig
	Tracking TrackingConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

type JWTConfig struct {
	Secret   string
	TTLHours int
}

type RoutingConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

type TrackingConfig struct {
	RetentionDays        int
	SweepIntervalMinutes int
}
