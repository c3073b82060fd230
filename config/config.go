package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	Port     string
	Debug    bool
	LogLevel string

	Database DatabaseConfig

	RedisAddr string
	RedisPwd  string

	WebOrigin   string
	CORSOrigins []string

	AdminPIN          string
	AdminPINGenerated bool

	RFIDScanTTL time.Duration

	MQTT MQTTConfig
	NATS NATSConfig
	Mail MailConfig

	RateBorrowPerMin   int
	RateRegisterPerMin int
	RateEmailPerMin    int
}

type DatabaseConfig struct {
	Driver      string // postgres | sqlite
	URL         string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	SQLitePath  string
	LockTimeout time.Duration
}

type MQTTConfig struct {
	Enabled     bool
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	QoSCritical byte
	QoSNormal   byte
	ScanTopic   string
	SensorTopic string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type MailConfig struct {
	Server     string
	Port       string
	Username   string
	Password   string
	Sender     string
	SenderName string
}

// LoadEnv reads .env into the process environment when the file exists.
func LoadEnv() { _ = godotenv.Load() }

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "tpt_rfid")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "kiosk.db")
	v.SetDefault("LOCK_TIMEOUT", "5s")

	v.SetDefault("WEB_ORIGIN", "http://localhost:5000")
	v.SetDefault("RFID_SCAN_TTL", "3s")

	v.SetDefault("MQTT_ENABLED", false)
	v.SetDefault("MQTT_BROKER_URL", "tcp://localhost:1883")
	v.SetDefault("MQTT_CLIENT_ID", "tpt-rfid-server")
	v.SetDefault("MQTT_QOS_CRITICAL", 1)
	v.SetDefault("MQTT_QOS_NORMAL", 0)
	v.SetDefault("MQTT_TOPIC_RFID_SCAN", "rfid/scan")
	v.SetDefault("MQTT_TOPIC_SENSOR", "sensor/#")

	v.SetDefault("NATS_SUBJECT_PREFIX", "kiosk")

	v.SetDefault("MAIL_SERVER", "smtp.gmail.com")
	v.SetDefault("MAIL_PORT", "587")
	v.SetDefault("MAIL_SENDER_NAME", "Lab Fabrikasi")

	v.SetDefault("RATE_BORROW_PER_MIN", 20)
	v.SetDefault("RATE_REGISTER_PER_MIN", 10)
	v.SetDefault("RATE_EMAIL_PER_MIN", 5)
}

// Load reads environment variables (and an optional config.yaml) into Config.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	env := strings.ToLower(v.GetString("ENV"))
	debug := env == "development"
	if v.IsSet("DEBUG") {
		debug = v.GetBool("DEBUG")
	}

	lockTimeout, err := duration(v, "LOCK_TIMEOUT")
	if err != nil {
		return Config{}, err
	}
	scanTTL, err := duration(v, "RFID_SCAN_TTL")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:      env,
		Port:     v.GetString("PORT"),
		Debug:    debug,
		LogLevel: v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Driver:      strings.ToLower(v.GetString("DB_DRIVER")),
			URL:         v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			SQLitePath:  v.GetString("SQLITE_PATH"),
			LockTimeout: lockTimeout,
		},
		RedisAddr:   v.GetString("REDIS_ADDR"),
		RedisPwd:    v.GetString("REDIS_PASSWORD"),
		WebOrigin:   v.GetString("WEB_ORIGIN"),
		CORSOrigins: splitCSV(v.GetString("CORS_ORIGINS")),
		AdminPIN:    v.GetString("ADMIN_PIN"),
		RFIDScanTTL: scanTTL,
		MQTT: MQTTConfig{
			Enabled:     v.GetBool("MQTT_ENABLED"),
			BrokerURL:   v.GetString("MQTT_BROKER_URL"),
			ClientID:    v.GetString("MQTT_CLIENT_ID"),
			Username:    v.GetString("MQTT_USERNAME"),
			Password:    v.GetString("MQTT_PASSWORD"),
			QoSCritical: byte(v.GetInt("MQTT_QOS_CRITICAL")),
			QoSNormal:   byte(v.GetInt("MQTT_QOS_NORMAL")),
			ScanTopic:   v.GetString("MQTT_TOPIC_RFID_SCAN"),
			SensorTopic: v.GetString("MQTT_TOPIC_SENSOR"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		Mail: MailConfig{
			Server:     v.GetString("MAIL_SERVER"),
			Port:       v.GetString("MAIL_PORT"),
			Username:   v.GetString("MAIL_USERNAME"),
			Password:   v.GetString("MAIL_PASSWORD"),
			Sender:     v.GetString("MAIL_DEFAULT_SENDER"),
			SenderName: v.GetString("MAIL_SENDER_NAME"),
		},
		RateBorrowPerMin:   v.GetInt("RATE_BORROW_PER_MIN"),
		RateRegisterPerMin: v.GetInt("RATE_REGISTER_PER_MIN"),
		RateEmailPerMin:    v.GetInt("RATE_EMAIL_PER_MIN"),
	}

	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Mail.Sender == "" {
		cfg.Mail.Sender = cfg.Mail.Username
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{cfg.WebOrigin}
	}
	if cfg.AdminPIN == "" {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return Config{}, fmt.Errorf("generate admin pin: %w", err)
		}
		cfg.AdminPIN = hex.EncodeToString(buf)
		cfg.AdminPINGenerated = true
	}
	return cfg, nil
}

// DSN builds the postgres connection string unless DATABASE_URL is set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

func (c Config) Production() bool { return c.Env == "production" || c.Env == "prod" }

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
