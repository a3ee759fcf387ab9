package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Port     string `mapstructure:"port"`
	RedisURL string `mapstructure:"redis_url"`

	// Data storage
	DataDir string `mapstructure:"data_dir"`

	// Default timezone for schedule arithmetic
	Timezone string `mapstructure:"timezone"`

	// Static web UI assets; empty disables serving
	WebDir string `mapstructure:"web_dir"`

	// Asterisk integration
	SpoolDir    string `mapstructure:"spool_dir"`
	SIPConfPath string `mapstructure:"sip_conf_path"`

	// Base URL the AGI call router uses to reach the API
	APIBaseURL string `mapstructure:"api_base_url"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present so 'go run' works without manually
	// exporting env vars; missing .env is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	v := viper.New()

	// Set default values
	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("spool_dir", "/var/spool/asterisk/outgoing")
	v.SetDefault("sip_conf_path", "/etc/asterisk/sip.conf")
	v.SetDefault("api_base_url", "http://localhost:8080")

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("oncall")
		v.SetConfigType("yaml")
	}

	// Bind standard environment variables (Docker/deploy compatibility)
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("data_dir", "ONCALL_DATA_DIR")
	_ = v.BindEnv("timezone", "ONCALL_TIMEZONE")
	_ = v.BindEnv("web_dir", "ONCALL_WEB_DIR")
	_ = v.BindEnv("spool_dir", "ASTERISK_SPOOL_DIR")
	_ = v.BindEnv("sip_conf_path", "SIP_CONF_PATH")
	_ = v.BindEnv("api_base_url", "ONCALL_API_URL")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("Loaded config from: %s", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&App); err != nil {
		return err
	}

	return nil
}
