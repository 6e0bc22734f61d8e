package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string         `mapstructure:"port"`
	ClientOrigin  string         `mapstructure:"client_origin"`
	MongoURI      string         `mapstructure:"MONGODB_URI"`
	MongoDatabase string         `mapstructure:"mongo_database"`
	AI            AIConfig       `mapstructure:"ai"`
	Weaviate      WeaviateConfig `mapstructure:"weaviate"`
	Auth          AuthConfig     `mapstructure:"auth"`
	Log           LogConfig      `mapstructure:"log"`
}

type AIConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	OpenAIAPIKey   string `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKey   string `mapstructure:"GEMINI_API_KEY"`
}

type WeaviateConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// TestMode enables the pre-shared "test:<email>" bearer format. Never
	// set in a default configuration.
	TestMode    bool     `mapstructure:"test_mode"`
	AdminEmails []string `mapstructure:"admin_emails"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HasModelCredential reports whether a chat backend can be called. When
// false the server falls back to the simulated stream.
func (c *Config) HasModelCredential() bool {
	return c.AI.OpenAIAPIKey != "" || c.AI.GeminiAPIKey != ""
}

// Validate rejects configurations that cannot serve authenticated traffic.
// With an empty secret any attacker-minted HS256 token would verify.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && !c.Auth.TestMode {
		return fmt.Errorf("auth: JWT_SECRET must be set")
	}
	return nil
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Secrets come from the environment, never the config file. The nested
	// keys need an explicit binding or Unmarshal will not see them.
	v.BindEnv("ai.OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("ai.GEMINI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("weaviate.WEAVIATE_APIKEY", "WEAVIATE_APIKEY")
	v.BindEnv("auth.JWT_SECRET", "JWT_SECRET")
	v.BindEnv("MONGODB_URI")

	v.SetDefault("port", "8080")
	v.SetDefault("client_origin", "http://localhost:5173")
	v.SetDefault("mongo_database", "ragchat")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.embedding_model", "text-embedding-3-small")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
