package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Neo4j    Neo4jConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	AnswerTTL int
	Enabled   bool
}

type SQLiteConfig struct {
	Path string
}

type LLMConfig struct {
	APIKey         string
	Model          string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
	AnswerPhrasing bool
}

type PipelineConfig struct {
	// Strategy selects query generation: "templated", "synthesized" or "llm".
	Strategy        string
	QueryTimeoutSec int
	MaxAnswerRows   int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/biokg-agent")

	viper.SetEnvPrefix("BIOKG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(cfg *Config) error {
	switch cfg.Pipeline.Strategy {
	case "templated", "synthesized":
	case "llm":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("pipeline.strategy is llm but llm.apiKey is not set")
		}
	default:
		return fmt.Errorf("unknown pipeline.strategy %q", cfg.Pipeline.Strategy)
	}
	if cfg.Pipeline.MaxAnswerRows <= 0 {
		return fmt.Errorf("pipeline.maxAnswerRows must be positive")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.answerTTL", 3600)
	viper.SetDefault("redis.enabled", true)

	viper.SetDefault("sqlite.path", "./data/biokg.db")

	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 512)
	viper.SetDefault("llm.timeoutSec", 30)
	viper.SetDefault("llm.answerPhrasing", false)

	viper.SetDefault("pipeline.strategy", "templated")
	viper.SetDefault("pipeline.queryTimeoutSec", 10)
	viper.SetDefault("pipeline.maxAnswerRows", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
