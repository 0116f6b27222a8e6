package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		Port     string `yaml:"port"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret      string `yaml:"jwt_secret"`
		CookieName     string `yaml:"cookie_name"`
		SessionTTLDays int    `yaml:"session_ttl_days"`
	} `yaml:"auth"`
	LLM struct {
		APIKey         string `yaml:"api_key"`
		BaseURL        string `yaml:"base_url"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// GlobalConfig is the global configuration instance
var GlobalConfig Config

// DSN generates the PostgreSQL DSN from database config
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.Port,
		c.Database.SSLMode,
	)
}

// SessionTTL returns the configured session cookie lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLDays) * 24 * time.Hour
}

// LLMTimeout returns the deadline applied to each completion call.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// LoadConfig reads and parses the YAML configuration file into GlobalConfig
func LoadConfig(filePath string) error {
	// Read the YAML file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	// Unmarshal YAML into GlobalConfig
	if err := yaml.Unmarshal(data, &GlobalConfig); err != nil {
		return err
	}

	// Defaults for optional fields
	if GlobalConfig.Auth.CookieName == "" {
		GlobalConfig.Auth.CookieName = "session"
	}
	if GlobalConfig.Auth.SessionTTLDays == 0 {
		GlobalConfig.Auth.SessionTTLDays = 14
	}
	if GlobalConfig.LLM.Model == "" {
		GlobalConfig.LLM.Model = "gemini-2.0-flash"
	}
	if GlobalConfig.LLM.TimeoutSeconds == 0 {
		GlobalConfig.LLM.TimeoutSeconds = 60
	}

	// Validate required fields
	if GlobalConfig.Database.Host == "" {
		log.Fatal("database.host is required in config.yaml")
	}
	if GlobalConfig.Database.User == "" {
		log.Fatal("database.user is required in config.yaml")
	}
	if GlobalConfig.Database.Password == "" {
		log.Fatal("database.password is required in config.yaml")
	}
	if GlobalConfig.Database.DBName == "" {
		log.Fatal("database.dbname is required in config.yaml")
	}
	if GlobalConfig.Database.Port == "" {
		log.Fatal("database.port is required in config.yaml")
	}
	if GlobalConfig.Database.SSLMode == "" {
		log.Fatal("database.sslmode is required in config.yaml")
	}
	if GlobalConfig.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret is required in config.yaml")
	}
	if GlobalConfig.LLM.APIKey == "" {
		log.Fatal("llm.api_key is required in config.yaml")
	}
	if GlobalConfig.Server.Port == 0 {
		log.Fatal("server.port is required in config.yaml")
	}
	if GlobalConfig.Server.Port < 1 || GlobalConfig.Server.Port > 65535 {
		log.Fatal("server.port must be between 1 and 65535")
	}

	return nil
}
