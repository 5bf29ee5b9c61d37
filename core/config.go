package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
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
		Host                      string
		Address                   string
		DebugHost                 string
		StudentJWTExpirationDelta time.Duration
		AdminJWTExpirationDelta   time.Duration
		ShutdownTimeout           time.Duration
		MaxUploadSize             int64
	}

	IngestConfig struct {
		Workers    int
		BatchSize  int
		BatchPause time.Duration
	}

	Config struct {
		Env           string
		Debug         bool
		TestMode      bool
		AppName       string
		Build         string
		SecretKey     string
		RollbarToken  string
		StorageDriver string
		WorkDir       string
		Database      DatabaseConfig
		Server        ServerConfig
		Ingest        IngestConfig
	}
)

func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%s", dc.Host, dc.Port)
}

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values come from defaults, then config/.env.<env> (if it exists), then <ENV>_* environment variables.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	workDir := Getwd()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env == "DEV" || env == "TEST")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Feedback")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "x9!t3mk$-4r@qv0b)7hz&wq2(e#p^n8c5l%j+u1d=g6ys_ffa")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("storageDriver", StoragePostgres)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "feedback")
	conf.SetDefault("dbUser", "feedback")
	conf.SetDefault("dbPassword", "feedback")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":4000")
	conf.SetDefault("serverDebugHost", ":4001")
	conf.SetDefault("studentJWTExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("adminJWTExpirationDelta", 24*time.Hour)
	conf.SetDefault("shutdownTimeout", 5*time.Second)
	conf.SetDefault("maxUploadSize", int64(10<<20)) // 10MB

	conf.SetDefault("ingestWorkers", 4)
	conf.SetDefault("ingestBatchSize", 25)
	conf.SetDefault("ingestBatchPause", 50*time.Millisecond)

	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:           env,
		Debug:         conf.GetBool("debug"),
		TestMode:      conf.GetBool("testMode"),
		AppName:       conf.GetString("appName"),
		Build:         conf.GetString("build"),
		SecretKey:     conf.GetString("secretKey"),
		RollbarToken:  conf.GetString("rollbarToken"),
		StorageDriver: strings.ToLower(conf.GetString("storageDriver")),
		WorkDir:       workDir,
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Address:                   conf.GetString("serverAddress"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			StudentJWTExpirationDelta: conf.GetDuration("studentJWTExpirationDelta"),
			AdminJWTExpirationDelta:   conf.GetDuration("adminJWTExpirationDelta"),
			ShutdownTimeout:           conf.GetDuration("shutdownTimeout"),
			MaxUploadSize:             conf.GetInt64("maxUploadSize"),
		},
		Ingest: IngestConfig{
			Workers:    conf.GetInt("ingestWorkers"),
			BatchSize:  conf.GetInt("ingestBatchSize"),
			BatchPause: conf.GetDuration("ingestBatchPause"),
		},
	}
}
