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
	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Address         string
		DebugAddress    string
		BaseURL         string // absolute URL used in mailed links
		TemplatesDir    string // empty: views are rendered as JSON
		DisableReqLogs  bool
		ShutdownTimeout time.Duration
	}

	SMTPConfig struct {
		Host     string
		Port     int
		Username string
		Password string
		SSL      bool
	}

	Config struct {
		Env      string // DEV (local; default), TEST, QA, PROD
		Build    string
		Debug    bool
		TestMode bool
		AppName  string

		SecretKey            string
		PasswordResetTimeout time.Duration
		SessionMaxAge        time.Duration

		MailBackend      string // console | sendgrid | smtp
		DefaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		SMTP     SMTPConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// FromAddress parses DefaultFromEmail, falling back to the bare address on error.
func (c *Config) FromAddress() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the configuration: defaults, then config/.env.<env> if it exists, then the environment.
func NewConfig() *Config {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Escola")
	v.SetDefault("secretKey", "k3#x9!p2@escola-dev-only-8v$w1z&m4q^r7t*y0u(i)o")
	v.SetDefault("passwordResetTimeout", time.Hour)
	v.SetDefault("sessionMaxAge", 7*24*time.Hour)
	v.SetDefault("mail.backend", "console")
	v.SetDefault("defaultFromEmail", "Escola <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.baseURL", "http://localhost:8000")
	v.SetDefault("server.templatesDir", "")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "escola")
	v.SetDefault("database.user", "escola")
	v.SetDefault("database.password", "escola")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.ssl", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:      env,
		Build:    v.GetString("build"),
		Debug:    v.GetBool("debug"),
		TestMode: env == "TEST",
		AppName:  v.GetString("appName"),

		SecretKey:            v.GetString("secretKey"),
		PasswordResetTimeout: v.GetDuration("passwordResetTimeout"),
		SessionMaxAge:        v.GetDuration("sessionMaxAge"),

		MailBackend:      v.GetString("mail.backend"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),

		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			BaseURL:         strings.TrimRight(v.GetString("server.baseURL"), "/"),
			TemplatesDir:    v.GetString("server.templatesDir"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			SSL:      v.GetBool("smtp.ssl"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests; nothing is read from disk or the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:                  "TEST",
		Build:                "test",
		Debug:                false,
		TestMode:             true,
		AppName:              "Escola",
		SecretKey:            "test-secret",
		PasswordResetTimeout: time.Hour,
		SessionMaxAge:        time.Hour,
		MailBackend:          "console",
		DefaultFromEmail:     "Escola <noreply@test.local>",
		Server: ServerConfig{
			Address:        ":0",
			BaseURL:        "http://escola.test",
			DisableReqLogs: true,
		},
	}
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}
