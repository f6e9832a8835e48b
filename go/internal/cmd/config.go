package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the racer CLI configuration. Values from the yaml file can be
// overridden with TYPERACE_* environment variables.
type Config struct {
	APIURL     string `yaml:"api_url"`
	Token      string `yaml:"token"`
	Dictionary string `yaml:"dictionary"`
}

func defaultConfig() *Config {
	return &Config{
		APIURL:     "http://localhost:8080",
		Dictionary: "default",
	}
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.APIURL = getEnv("TYPERACE_API_URL", config.APIURL)
	config.Token = getEnv("TYPERACE_TOKEN", config.Token)
	config.Dictionary = getEnv("TYPERACE_DICTIONARY", config.Dictionary)
	return config, nil
}

// wsBaseURL derives the channel endpoint from the API URL by scheme swap,
// the same mapping the web client uses.
func wsBaseURL(apiURL string) string {
	return strings.Replace(apiURL, "http", "ws", 1)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
