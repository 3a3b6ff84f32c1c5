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
		Debug     bool
		TestMode  bool
		Env       string // DEV (local; default), TEST, QA, PROD
		Build     string
		WorkDir   string
		AppName   string
		SecretKey string
		ClientURL string

		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		DefaultStudentPassword string
		NotifyGroupMembers     bool

		Server    serverConfig
		Database  databaseConfig
		Gemini    geminiConfig
		Bootstrap bootstrapConfig
	}

	serverConfig struct {
		Host               string
		Port               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	databaseConfig struct {
		Engine        string // postgres | memory
		URL           string // optional DSN, takes precedence over the parts below
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	geminiConfig struct {
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	bootstrapConfig struct {
		TeacherName     string
		TeacherEmail    string
		TeacherPassword string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.defaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
}

// Address returns the [host]:port the API listens on.
func (s serverConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (db databaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func (db databaseConfig) InMemory() bool {
	return db.Engine == "memory"
}

func (g geminiConfig) Configured() bool {
	return strings.TrimSpace(g.APIKey) != ""
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if present) and the environment.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Kikundi")
	conf.SetDefault("secretKey", "dev-secret-change-in-production")
	conf.SetDefault("clientURL", "http://localhost:5173")
	conf.SetDefault("defaultFromEmail", "Kikundi <noreply@localhost>")
	conf.SetDefault("defaultStudentPassword", "password123")
	conf.SetDefault("notifyGroupMembers", false)

	conf.SetDefault("server.host", "")
	conf.SetDefault("server.port", "5000")
	conf.SetDefault("server.debugHost", "localhost:5050")
	conf.SetDefault("server.shutdownTimeout", 10*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.disableReqLogs", false)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.url", "")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.user", "kikundi")
	conf.SetDefault("database.password", "kikundi")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.name", "kikundi")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("gemini.apiKey", "")
	conf.SetDefault("gemini.model", "gemini-2.0-flash")
	conf.SetDefault("gemini.timeout", 15*time.Second)

	conf.SetDefault("bootstrap.teacherName", "Dr. Admin")
	conf.SetDefault("bootstrap.teacherEmail", "hitman@gmail.com")
	conf.SetDefault("bootstrap.teacherPassword", "hitman123")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// well known names, shared with the client tooling
	_ = conf.BindEnv("server.port", "PORT")
	_ = conf.BindEnv("secretKey", "JWT_SECRET")
	_ = conf.BindEnv("clientURL", "CLIENT_URL")
	_ = conf.BindEnv("gemini.apiKey", "GEMINI_API_KEY")
	_ = conf.BindEnv("database.url", "DATABASE_URL")
	_ = conf.BindEnv("rollbarToken", "ROLLBAR_TOKEN")
	_ = conf.BindEnv("sendgridApiKey", "SENDGRID_API_KEY")

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:                  conf.GetBool("debug"),
		TestMode:               conf.GetBool("testMode"),
		Env:                    env,
		Build:                  conf.GetString("build"),
		WorkDir:                wd,
		AppName:                conf.GetString("appName"),
		SecretKey:              conf.GetString("secretKey"),
		ClientURL:              conf.GetString("clientURL"),
		RollbarToken:           conf.GetString("rollbarToken"),
		SendgridApiKey:         conf.GetString("sendgridApiKey"),
		defaultFromEmail:       conf.GetString("defaultFromEmail"),
		DefaultStudentPassword: conf.GetString("defaultStudentPassword"),
		NotifyGroupMembers:     conf.GetBool("notifyGroupMembers"),
		Server: serverConfig{
			Host:               conf.GetString("server.host"),
			Port:               conf.GetString("server.port"),
			DebugHost:          conf.GetString("server.debugHost"),
			ShutdownTimeout:    conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("server.jwtExpirationDelta"),
			DisableReqLogs:     conf.GetBool("server.disableReqLogs"),
		},
		Database: databaseConfig{
			Engine:        conf.GetString("database.engine"),
			URL:           conf.GetString("database.url"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Name:          conf.GetString("database.name"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Gemini: geminiConfig{
			APIKey:  strings.TrimSpace(conf.GetString("gemini.apiKey")),
			Model:   conf.GetString("gemini.model"),
			Timeout: conf.GetDuration("gemini.timeout"),
		},
		Bootstrap: bootstrapConfig{
			TeacherName:     conf.GetString("bootstrap.teacherName"),
			TeacherEmail:    conf.GetString("bootstrap.teacherEmail"),
			TeacherPassword: conf.GetString("bootstrap.teacherPassword"),
		},
	}
}
