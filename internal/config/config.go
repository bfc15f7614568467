package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		AppURL  string `yaml:"app_url"`
	} `yaml:"server"`
	Firebase struct {
		CredentialsFile string `yaml:"credentials_file"`
		ProjectID       string `yaml:"project_id"`
	} `yaml:"firebase"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Stripe struct {
		SecretKey     string `yaml:"secret_key"`
		WebhookSecret string `yaml:"webhook_secret"`
		BaseURL       string `yaml:"base_url"`
		Prices        struct {
			Lite                     string `yaml:"lite"`
			Dealer                   string `yaml:"dealer"`
			Enterprise               string `yaml:"enterprise"`
			EnterpriseAdditionalUser string `yaml:"enterprise_additional_user"`
		} `yaml:"prices"`
	} `yaml:"stripe"`
	Resend struct {
		APIKey string `yaml:"api_key"`
		From   string `yaml:"from"`
	} `yaml:"resend"`
	Internal struct {
		APISecret       string `yaml:"api_secret"`
		TokenSigningKey string `yaml:"token_signing_key"`
	} `yaml:"internal"`
	Storage struct {
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		Endpoint  string `yaml:"endpoint"`
	} `yaml:"storage"`
}

// LoadConfig reads the yaml config and applies env overrides for secrets so
// deployments can keep keys out of the file.
func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		log.Fatalf("Failed to unmarshal config data: %v", err)
	}

	overrideFromEnv(&cfg)
	return cfg
}

func overrideFromEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set(&cfg.Server.AppURL, "APP_URL")
	set(&cfg.Firebase.CredentialsFile, "FIREBASE_CREDENTIALS_FILE")
	set(&cfg.Firebase.ProjectID, "FIREBASE_PROJECT_ID")
	set(&cfg.Redis.Addr, "REDIS_ADDR")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	set(&cfg.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	set(&cfg.Stripe.Prices.Lite, "STRIPE_PRICE_ID_LITE")
	set(&cfg.Stripe.Prices.Dealer, "STRIPE_PRICE_ID_DEALER")
	set(&cfg.Stripe.Prices.Enterprise, "STRIPE_PRICE_ID_ENTERPRISE")
	set(&cfg.Stripe.Prices.EnterpriseAdditionalUser, "STRIPE_PRICE_ID_ENTERPRISE_ADDITIONAL_USER")
	set(&cfg.Resend.APIKey, "RESEND_API_KEY")
	set(&cfg.Resend.From, "RESEND_FROM")
	set(&cfg.Internal.APISecret, "INTERNAL_API_SECRET")
	set(&cfg.Internal.TokenSigningKey, "INTERNAL_TOKEN_SIGNING_KEY")
	set(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	set(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	set(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	set(&cfg.Storage.Region, "STORAGE_REGION")
	set(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
}
