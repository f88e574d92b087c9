package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	HTTP struct {
		Timeout time.Duration `mapstructure:"timeout"` // shared outbound client timeout
	} `mapstructure:"http"`
	Store struct {
		BaseURL       string `mapstructure:"baseURL"`
		BaseID        string `mapstructure:"baseID"`
		APIKey        string `mapstructure:"apiKey"`
		ProfilesTable string `mapstructure:"profilesTable"`
		LogTable      string `mapstructure:"logTable"`
	} `mapstructure:"store"`
	Gateway struct {
		BaseURL      string `mapstructure:"baseURL"`
		AccountSID   string `mapstructure:"accountSID"`
		AuthToken    string `mapstructure:"authToken"`
		TemplateSID  string `mapstructure:"templateSID"`  // WhatsApp content template
		WhatsAppFrom string `mapstructure:"whatsappFrom"` // sending address for templated alerts
		PublicURL    string `mapstructure:"publicURL"`    // public callback URL, enables signature checks
	} `mapstructure:"gateway"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	// Create new viper instance
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 3000)
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("store.baseURL", "https://api.airtable.com")
	v.SetDefault("store.profilesTable", "Tradespeople")
	v.SetDefault("store.logTable", "Message Log")
	v.SetDefault("gateway.baseURL", "https://api.twilio.com")
	v.SetDefault("metrics.enabled", true)

	// Config file settings
	v.SetConfigName("default") // name of config file (without extension)
	v.SetConfigType("yaml")    // REQUIRED if the config file does not have the extension in the name

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.missed-call-router")
	v.AddConfigPath("/etc/missed-call-router")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.port", port)
	}
	if baseID := os.Getenv("AIRTABLE_BASE_ID"); baseID != "" {
		v.Set("store.baseID", baseID)
	}
	if apiKey := os.Getenv("AIRTABLE_API_KEY"); apiKey != "" {
		v.Set("store.apiKey", apiKey)
	}
	if table := os.Getenv("AIRTABLE_PROFILES_TABLE"); table != "" {
		v.Set("store.profilesTable", table)
	}
	if table := os.Getenv("AIRTABLE_LOG_TABLE"); table != "" {
		v.Set("store.logTable", table)
	}
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		v.Set("gateway.accountSID", sid)
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		v.Set("gateway.authToken", token)
	}
	if tmpl := os.Getenv("TWILIO_TEMPLATE_SID"); tmpl != "" {
		v.Set("gateway.templateSID", tmpl)
	}
	if from := os.Getenv("TWILIO_WHATSAPP_FROM"); from != "" {
		v.Set("gateway.whatsappFrom", from)
	}
	if publicURL := os.Getenv("PUBLIC_URL"); publicURL != "" {
		v.Set("gateway.publicURL", publicURL)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		// Get the field tag value (mapstructure)
		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		// Build the env var path
		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		// Bind the env var
		_ = v.BindEnv(key)
	}
}
