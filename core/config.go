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
	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
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

	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string
		AppName  string
		WorkDir  string

		SecretKey                 []byte
		PasswordResetTimeoutDelta time.Duration

		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string
		FCMCredentials   string // path to the Firebase service account file

		AttendanceThreshold int // monthly percentage below which a member is flagged

		Server   ServerConfig
		Database DatabaseConfig
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads the app configuration from the environment.
// An optional `config/.env.<env>` file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Podium")
	v.SetDefault("secretKey", "v#ax9r$+f&k2m(u8@sec*mun)pod1um!q3z-w7y_h5j^b0e4n6")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("attendanceThreshold", 80)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "podium")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseUser", "podium")
	v.SetDefault("databasePassword", "podium")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:    v.GetBool("debug"),
		TestMode: env == "TEST",
		Env:      env,
		Build:    v.GetString("build"),
		AppName:  v.GetString("appName"),
		WorkDir:  wd,

		SecretKey:                 []byte(v.GetString("secretKey")),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),

		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		FCMCredentials:   v.GetString("fcmCredentials"),

		AttendanceThreshold: v.GetInt("attendanceThreshold"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Addr:                      v.GetString("serverAddr"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
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
}
