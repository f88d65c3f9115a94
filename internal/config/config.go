package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Internal InternalConfig `mapstructure:"internal"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Meta     MetaConfig     `mapstructure:"meta"`
	Iyzico   IyzicoConfig   `mapstructure:"iyzico"`
	PayTR    PayTRConfig    `mapstructure:"paytr"`
	Resend   ResendConfig   `mapstructure:"resend"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Env         string `mapstructure:"env"`
	Port        int    `mapstructure:"port"`
	BaseURL     string `mapstructure:"base_url"`
	FrontendURL string `mapstructure:"frontend_url"`
}

type DatabaseConfig struct {
	// Driver is "postgres" (default) or "sqlite"
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=Europe/Istanbul",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig describes how access tokens issued by the identity provider are verified.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

type InternalConfig struct {
	APISecret string `mapstructure:"api_secret"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetaConfig struct {
	AppID            string `mapstructure:"app_id"`
	AppSecret        string `mapstructure:"app_secret"`
	VerifyToken      string `mapstructure:"verify_token"`
	GraphBaseURL     string `mapstructure:"graph_base_url"`
	GraphVersion     string `mapstructure:"graph_version"`
	OAuthRedirectURL string `mapstructure:"oauth_redirect_url"`
}

type IyzicoConfig struct {
	APIKey      string `mapstructure:"api_key"`
	SecretKey   string `mapstructure:"secret_key"`
	BaseURL     string `mapstructure:"base_url"`
	CallbackURL string `mapstructure:"callback_url"`
	MerchantID  string `mapstructure:"merchant_id"`
}

type PayTRConfig struct {
	MerchantID   string `mapstructure:"merchant_id"`
	MerchantKey  string `mapstructure:"merchant_key"`
	MerchantSalt string `mapstructure:"merchant_salt"`
	BaseURL      string `mapstructure:"base_url"`
	OkURL        string `mapstructure:"ok_url"`
	FailURL      string `mapstructure:"fail_url"`
	TestMode     bool   `mapstructure:"test_mode"`
}

type ResendConfig struct {
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
	BaseURL string `mapstructure:"base_url"`
}

type AgentConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type BillingConfig struct {
	GracePeriod     time.Duration `mapstructure:"grace_period"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	MaxEventRetries int           `mapstructure:"max_event_retries"`
}

type RealtimeConfig struct {
	// Driver is "hub", "centrifugo" or "none"
	Driver           string `mapstructure:"driver"`
	CentrifugoURL    string `mapstructure:"centrifugo_url"`
	CentrifugoAPIKey string `mapstructure:"centrifugo_api_key"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// IsProduction checks if app is in production mode
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment checks if app is in development mode
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", v.GetString("app.name")),
			Env:         getEnvOrDefault("APP_ENV", v.GetString("app.env")),
			Port:        getEnvOrDefaultInt("APP_PORT", v.GetInt("app.port")),
			BaseURL:     getEnvOrDefault("APP_BASE_URL", v.GetString("app.base_url")),
			FrontendURL: getEnvOrDefault("APP_FRONTEND_URL", v.GetString("app.frontend_url")),
		},
		Database: DatabaseConfig{
			Driver:          getEnvOrDefault("DB_DRIVER", v.GetString("database.driver")),
			Host:            getEnvOrDefault("DB_HOST", v.GetString("database.host")),
			Port:            getEnvOrDefaultInt("DB_PORT", v.GetInt("database.port")),
			User:            getEnvOrDefault("DB_USER", v.GetString("database.user")),
			Password:        getEnvOrDefault("DB_PASSWORD", v.GetString("database.password")),
			Name:            getEnvOrDefault("DB_NAME", v.GetString("database.name")),
			SSLMode:         getEnvOrDefault("DB_SSL_MODE", v.GetString("database.ssl_mode")),
			SQLitePath:      getEnvOrDefault("DB_SQLITE_PATH", v.GetString("database.sqlite_path")),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", v.GetString("logging.level")),
			Format: getEnvOrDefault("LOG_FORMAT", v.GetString("logging.format")),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvOrDefault("AUTH_JWT_SECRET", v.GetString("auth.jwt_secret")),
			Issuer:    getEnvOrDefault("AUTH_ISSUER", v.GetString("auth.issuer")),
			Audience:  getEnvOrDefault("AUTH_AUDIENCE", v.GetString("auth.audience")),
		},
		Internal: InternalConfig{
			APISecret: getEnvOrDefault("INTERNAL_API_SECRET", v.GetString("internal.api_secret")),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvOrDefaultList("CORS_ALLOWED_ORIGINS", v.GetStringSlice("cors.allowed_origins")),
		},
		Meta: MetaConfig{
			AppID:            getEnvOrDefault("META_APP_ID", v.GetString("meta.app_id")),
			AppSecret:        getEnvOrDefault("META_APP_SECRET", v.GetString("meta.app_secret")),
			VerifyToken:      getEnvOrDefault("META_VERIFY_TOKEN", v.GetString("meta.verify_token")),
			GraphBaseURL:     getEnvOrDefault("META_GRAPH_BASE_URL", v.GetString("meta.graph_base_url")),
			GraphVersion:     getEnvOrDefault("META_GRAPH_VERSION", v.GetString("meta.graph_version")),
			OAuthRedirectURL: getEnvOrDefault("META_OAUTH_REDIRECT_URL", v.GetString("meta.oauth_redirect_url")),
		},
		Iyzico: IyzicoConfig{
			APIKey:      getEnvOrDefault("IYZICO_API_KEY", v.GetString("iyzico.api_key")),
			SecretKey:   getEnvOrDefault("IYZICO_SECRET_KEY", v.GetString("iyzico.secret_key")),
			BaseURL:     getEnvOrDefault("IYZICO_BASE_URL", v.GetString("iyzico.base_url")),
			CallbackURL: getEnvOrDefault("IYZICO_CALLBACK_URL", v.GetString("iyzico.callback_url")),
			MerchantID:  getEnvOrDefault("IYZICO_MERCHANT_ID", v.GetString("iyzico.merchant_id")),
		},
		PayTR: PayTRConfig{
			MerchantID:   getEnvOrDefault("PAYTR_MERCHANT_ID", v.GetString("paytr.merchant_id")),
			MerchantKey:  getEnvOrDefault("PAYTR_MERCHANT_KEY", v.GetString("paytr.merchant_key")),
			MerchantSalt: getEnvOrDefault("PAYTR_MERCHANT_SALT", v.GetString("paytr.merchant_salt")),
			BaseURL:      getEnvOrDefault("PAYTR_BASE_URL", v.GetString("paytr.base_url")),
			OkURL:        getEnvOrDefault("PAYTR_OK_URL", v.GetString("paytr.ok_url")),
			FailURL:      getEnvOrDefault("PAYTR_FAIL_URL", v.GetString("paytr.fail_url")),
			TestMode:     v.GetBool("paytr.test_mode"),
		},
		Resend: ResendConfig{
			APIKey:  getEnvOrDefault("RESEND_API_KEY", v.GetString("resend.api_key")),
			From:    getEnvOrDefault("RESEND_FROM", v.GetString("resend.from")),
			BaseURL: getEnvOrDefault("RESEND_BASE_URL", v.GetString("resend.base_url")),
		},
		Agent: AgentConfig{
			Timeout: v.GetDuration("agent.timeout"),
		},
		Billing: BillingConfig{
			GracePeriod:     v.GetDuration("billing.grace_period"),
			SweepInterval:   v.GetDuration("billing.sweep_interval"),
			MaxEventRetries: v.GetInt("billing.max_event_retries"),
		},
		Realtime: RealtimeConfig{
			Driver:           getEnvOrDefault("REALTIME_DRIVER", v.GetString("realtime.driver")),
			CentrifugoURL:    getEnvOrDefault("CENTRIFUGO_URL", v.GetString("realtime.centrifugo_url")),
			CentrifugoAPIKey: getEnvOrDefault("CENTRIFUGO_API_KEY", v.GetString("realtime.centrifugo_api_key")),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Prefix:  getEnvOrDefault("METRICS_PREFIX", v.GetString("metrics.prefix")),
		},
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "uppypro"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if c.Auth.Audience == "" {
		c.Auth.Audience = "authenticated"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Meta.GraphBaseURL == "" {
		c.Meta.GraphBaseURL = "https://graph.facebook.com"
	}
	if c.Meta.GraphVersion == "" {
		c.Meta.GraphVersion = "v19.0"
	}
	if c.Iyzico.BaseURL == "" {
		c.Iyzico.BaseURL = "https://sandbox-api.iyzipay.com"
	}
	if c.PayTR.BaseURL == "" {
		c.PayTR.BaseURL = "https://www.paytr.com"
	}
	if c.Resend.BaseURL == "" {
		c.Resend.BaseURL = "https://api.resend.com"
	}
	if c.Agent.Timeout == 0 {
		c.Agent.Timeout = 20 * time.Second
	}
	if c.Billing.GracePeriod == 0 {
		c.Billing.GracePeriod = 72 * time.Hour
	}
	if c.Billing.SweepInterval == 0 {
		c.Billing.SweepInterval = time.Hour
	}
	if c.Billing.MaxEventRetries == 0 {
		c.Billing.MaxEventRetries = 5
	}
	if c.Realtime.Driver == "" {
		c.Realtime.Driver = "hub"
	}
	if c.Metrics.Prefix == "" {
		c.Metrics.Prefix = "uppypro"
	}
}

// getEnvOrDefault returns env value or default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	// ${VAR:default} in the yaml reads VAR, then falls back to the inline default
	if strings.HasPrefix(defaultVal, "${") && strings.HasSuffix(defaultVal, "}") {
		inner := defaultVal[2 : len(defaultVal)-1]
		parts := strings.SplitN(inner, ":", 2)
		if val := os.Getenv(parts[0]); val != "" {
			return val
		}
		if len(parts) == 2 {
			return parts[1]
		}
		return ""
	}
	return defaultVal
}

// getEnvOrDefaultInt returns env value as int or default
func getEnvOrDefaultInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var intVal int
		fmt.Sscanf(val, "%d", &intVal)
		if intVal > 0 {
			return intVal
		}
	}
	if defaultVal > 0 {
		return defaultVal
	}
	return 0
}

// getEnvOrDefaultList splits a comma separated env value
func getEnvOrDefaultList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.App.Port)
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is required")
	}

	if c.Internal.APISecret == "" {
		return fmt.Errorf("internal api secret is required")
	}

	switch c.Realtime.Driver {
	case "hub", "none":
	case "centrifugo":
		if c.Realtime.CentrifugoURL == "" {
			return fmt.Errorf("centrifugo url is required for realtime driver centrifugo")
		}
	default:
		return fmt.Errorf("unsupported realtime driver: %s", c.Realtime.Driver)
	}

	return nil
}

// LoadConfig loads the default config path
func LoadConfig() (*Config, error) {
	return Load("configs/config.yaml")
}
