package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	AWS       AWSConfig
	DynamoDB  DynamoDBConfig
	Server    ServerConfig
	NATS      NATSConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type DynamoDBConfig struct {
	TableName        string
	MaxRetries       int
	UseLocalEndpoint bool
}

type ServerConfig struct {
	HTTPPort       int
	Environment    string
	LogLevel       string
	AllowedOrigins []string
}

type NATSConfig struct {
	URL                  string
	MaxReconnect         int
	ReconnectWaitSeconds int
	TimeoutSeconds       int
}

type RedisConfig struct {
	Address  string
	Password string
}

type SchedulerConfig struct {
	CompletionIntervalSeconds int
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath(configPath)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("KICKABOUT")

	viper.SetDefault("Server.HTTPPort", 8080)
	viper.SetDefault("Server.LogLevel", "info")
	viper.SetDefault("DynamoDB.MaxRetries", 3)
	viper.SetDefault("Scheduler.CompletionIntervalSeconds", 60)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
