package core

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	// Config holds all application settings. Values come from the environment
	// (prefixed with the current ENV, e.g. PROD_SECRETKEY) with sane DEV defaults;
	// an optional config/.env.<env> file is loaded first.
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string

		AppName          string
		SecretKey        []byte
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host            string
		Port            int
		DebugHost       string
		AllowedOrigins  []string
		ShutdownTimeout time.Duration

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration

		// LoginEnforcesRole rejects logins where the role supplied by the client
		// does not match the stored role. Kept configurable; see DESIGN.md.
		LoginEnforcesRole bool
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          int
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
)

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "EduConnect")
	v.SetDefault("secretKey", "x1u^7m$9@q&+dz0)educonnect(dev!only#k3y*4r8p%5s=2w")
	v.SetDefault("build", "dev")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverAllowedOrigins", "http://localhost:3000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("loginEnforcesRole", true)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "educonnect")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseUser", "")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		Env:      env,
		Build:    v.GetString("build"),

		AppName:          v.GetString("appName"),
		SecretKey:        []byte(v.GetString("secretKey")),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			AllowedOrigins:            strings.Split(v.GetString("serverAllowedOrigins"), ","),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
			LoginEnforcesRole:         v.GetBool("loginEnforcesRole"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetInt("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
	}

	if err := conf.validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return conf, nil
}

func (c *Config) validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(string(c.SecretKey), "secretKey"),
		vala.StringNotEmpty(c.Database.Engine, "databaseEngine"),
		vala.StringNotEmpty(c.Database.Name, "databaseName"),
		vala.GreaterThan(c.Server.Port, 0, "serverPort"),
		vala.GreaterThan(int(c.Server.JWTExpirationDelta), 0, "jwtExpirationDelta"),
	).Check()
}
