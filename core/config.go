package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		PasswordResetTimeoutDelta time.Duration
		FrontendBaseURL           string
		NotifyOnNewThread         bool
		RollbarToken              string
		SendgridApiKey            string
		WorkDir                   string
		defaultFromEmail          string

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugAddr                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
)

// Address returns the database "host:port".
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// InMemory reports whether the in-memory storage backend is configured.
func (dc DatabaseConfig) InMemory() bool {
	return dc.Engine == "memory"
}

// DefaultFromEmail parses the configured sender address.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment (DEV by default) and the prefix of every variable, e.g. DEV_DATABASE_HOST.
// config/.env.<env> is loaded first when it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("test_mode", env == "TEST")
	v.SetDefault("app_name", "Escuela")
	v.SetDefault("secret_key", "k8#2m!vq0r$x=7p@uj&w^sd4(e9)fz+hny3b1c*oa6tlg5_i")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_email", "noreply@localhost")
	v.SetDefault("notify_on_new_thread", false)
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")

	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_addr", ":8000")
	v.SetDefault("server_debug_addr", ":4000")
	v.SetDefault("server_shutdown_timeout", 5*time.Second)
	v.SetDefault("jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("jwt_refresh_expiration_delta", 4*time.Hour)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "escuela")
	v.SetDefault("database_user", "escuela")
	v.SetDefault("database_password", "escuela")
	v.SetDefault("database_admin_user", "postgres")
	v.SetDefault("database_admin_password", "postgres")
	v.SetDefault("database_disable_tls", env == "DEV" || env == "TEST")

	v.SetEnvPrefix(env)
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("test_mode"),
		AppName:                   v.GetString("app_name"),
		SecretKey:                 v.GetString("secret_key"),
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout_delta"),
		FrontendBaseURL:           v.GetString("frontend_base_url"),
		NotifyOnNewThread:         v.GetBool("notify_on_new_thread"),
		RollbarToken:              v.GetString("rollbar_token"),
		SendgridApiKey:            v.GetString("sendgrid_api_key"),
		WorkDir:                   wd,
		defaultFromEmail:          v.GetString("default_from_email"),
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			Addr:                      v.GetString("server_addr"),
			DebugAddr:                 v.GetString("server_debug_addr"),
			ShutdownTimeout:           v.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwt_refresh_expiration_delta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_admin_user"),
			AdminPassword: v.GetString("database_admin_password"),
			DisableTLS:    v.GetBool("database_disable_tls"),
		},
	}
}
