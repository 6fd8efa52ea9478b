package core

import (
	"fmt"
	"log"
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
		Debug    bool
		TestMode bool
		Env      string
		Build    string
		AppName  string

		// SecretKey signs auth tokens; HashSecret keys the password
		// at-rest transform. They must differ.
		SecretKey  string
		HashSecret string

		TokenExpirationDelta time.Duration
		FrontendBaseURL      string

		DefaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugAddr       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine   string
		Name     string
		User     string
		Password string
		Host     string
		Port     int
		// Timeout bounds a single store round trip.
		Timeout time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) FromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

// NewConfig loads the app configuration from the environment.
// A `config/.env.<env>` file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Kampus")
	v.SetDefault("secretKey", "w3lc0me-t0-k4mpus-ch4nge-m3-1n-pr0d")
	v.SetDefault("hashSecret", "k4mpus-h4sh-s3cret-ch4nge-m3-t00")
	v.SetDefault("tokenExpirationDelta", 24*time.Hour)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugAddr", ":8001")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("databaseEngine", "mysql")
	v.SetDefault("databaseName", "kampus")
	v.SetDefault("databaseUser", "kampus")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 3306)
	v.SetDefault("databaseTimeout", 5*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:                v.GetBool("debug"),
		TestMode:             v.GetBool("testMode"),
		Env:                  env,
		Build:                v.GetString("build"),
		AppName:              v.GetString("appName"),
		SecretKey:            v.GetString("secretKey"),
		HashSecret:           v.GetString("hashSecret"),
		TokenExpirationDelta: v.GetDuration("tokenExpirationDelta"),
		FrontendBaseURL:      v.GetString("frontendBaseURL"),
		DefaultFromEmail:     v.GetString("defaultFromEmail"),
		SendgridApiKey:       v.GetString("sendgridApiKey"),
		RollbarToken:         v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Addr:            v.GetString("serverAddr"),
			DebugAddr:       v.GetString("serverDebugAddr"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:   v.GetString("databaseEngine"),
			Name:     v.GetString("databaseName"),
			User:     v.GetString("databaseUser"),
			Password: v.GetString("databasePassword"),
			Host:     v.GetString("databaseHost"),
			Port:     v.GetInt("databasePort"),
			Timeout:  v.GetDuration("databaseTimeout"),
		},
	}
}

// NewTestConfig returns a Config suitable for unit tests.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Debug = true
	conf.TestMode = true
	conf.TokenExpirationDelta = 24 * time.Hour
	return conf
}
