package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is shared by all three binaries. The API and monitor worker run in
// a cluster with DB/AWS settings injected as pod environment variables; the
// agent runs on a device and only cares about the API_BASE_URL, AGENT_* and
// EMPLOYEE_ID keys.
type Config struct {
	DBHost           string        `mapstructure:"DB_HOST"`
	DBPort           string        `mapstructure:"DB_PORT"`
	DBUser           string        `mapstructure:"DB_USER"`
	DBPassword       string        `mapstructure:"DB_PASSWORD"`
	DBName           string        `mapstructure:"DB_NAME"`
	ServerPort       string        `mapstructure:"SERVER_PORT"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	AWSRegion        string        `mapstructure:"AWS_REGION"`
	PunchEventsQueue string        `mapstructure:"PUNCH_EVENTS_QUEUE_URL"`
	AWSEndpoint      string        `mapstructure:"AWS_ENDPOINT"`
	AlertSender      string        `mapstructure:"ALERT_SENDER"`
	AlertRecipient   string        `mapstructure:"ALERT_RECIPIENT"`
	IsLocalDev       bool          `mapstructure:"IS_LOCAL_DEV"`
	APIBaseURL       string        `mapstructure:"API_BASE_URL"`
	AgentDBPath      string        `mapstructure:"AGENT_DB_PATH"`
	AgentPort        string        `mapstructure:"AGENT_PORT"`
	EmployeeID       int64         `mapstructure:"EMPLOYEE_ID"`
	DeviceLatitude   float64       `mapstructure:"DEVICE_LATITUDE"`
	DeviceLongitude  float64       `mapstructure:"DEVICE_LONGITUDE"`
	SyncInterval     time.Duration `mapstructure:"SYNC_INTERVAL"`
	SubmitTimeout    time.Duration `mapstructure:"SUBMIT_TIMEOUT"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("DB_HOST", "db")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "punchclock_db")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("AWS_REGION", "us-east-1") // Default region for AWS services
	viper.SetDefault("PUNCH_EVENTS_QUEUE_URL", "http://localstack:4566/000000000000/punch-events-queue")
	viper.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	viper.SetDefault("ALERT_SENDER", "alerts@punchclock-service.com")
	viper.SetDefault("ALERT_RECIPIENT", "ops@punchclock-service.com")
	viper.SetDefault("IS_LOCAL_DEV", false)
	viper.SetDefault("API_BASE_URL", "http://localhost:8080")
	viper.SetDefault("AGENT_DB_PATH", "punchclock-agent.db")
	viper.SetDefault("AGENT_PORT", "8090")
	viper.SetDefault("EMPLOYEE_ID", 1)
	viper.SetDefault("SYNC_INTERVAL", "30s")
	viper.SetDefault("SUBMIT_TIMEOUT", "10s")

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}
