package app

import (
	"context"
	"fmt"
	"time"

	"rfid_tool_kiosk/config"
	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/lending"
	"rfid_tool_kiosk/mail"
	"rfid_tool_kiosk/notify"
	"rfid_tool_kiosk/rfid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// short aliases for handlers
type Ctx = gin.Context
type H = gin.H

// App aggregates the process-wide dependencies. Everything is built once
// and handed to the handlers; nothing here is a package global.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client // nil when redis is not configured
	Config config.Config
	Log    zerolog.Logger

	Repo     *db.Repo
	Engine   *lending.Engine
	Lookup   *lending.Lookup
	Reader   rfid.Reader
	Hub      *notify.Hub
	Notifier *notify.Broadcaster
	Mailer   mail.Sender

	mqtt mqtt.Client
	nats *nats.Conn
}

// Deps are the externally built pieces. Only DB is required.
type Deps struct {
	Config config.Config
	Log    zerolog.Logger
	DB     *gorm.DB
	RDB    *redis.Client
	Reader rfid.Reader
	Mailer mail.Sender
	Sinks  []notify.Sink
}

// Assemble wires the engine, lookups, notifier and router around deps.
func Assemble(d Deps) *App {
	if d.Config.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	repo := db.NewRepo(d.DB, d.Config.Database.LockTimeout)
	hub := notify.NewHub(32)
	sinks := append([]notify.Sink{hub, notify.LogSink{Log: d.Log}}, d.Sinks...)
	if d.RDB != nil {
		sinks = append(sinks, notify.NewRedisSink(d.RDB, ""))
	}
	bc := notify.NewBroadcaster(d.Log, notify.DefaultPublishTimeout, sinks...)

	reader := d.Reader
	if reader == nil {
		if d.RDB != nil {
			reader = rfid.NewRedisReader(d.RDB, "", d.Config.RFIDScanTTL)
		} else {
			reader = rfid.NewMemoryReader(d.Config.RFIDScanTTL)
		}
	}
	mailer := d.Mailer
	if mailer == nil {
		mailer = mail.NewSMTPSender(mail.SMTPConfig{
			Host:       d.Config.Mail.Server,
			Port:       d.Config.Mail.Port,
			Username:   d.Config.Mail.Username,
			Password:   d.Config.Mail.Password,
			From:       d.Config.Mail.Sender,
			SenderName: d.Config.Mail.SenderName,
		})
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Log))
	useCORS(r, d.Config.CORSOrigins)

	return &App{
		Router:   r,
		DB:       d.DB,
		RDB:      d.RDB,
		Config:   d.Config,
		Log:      d.Log,
		Repo:     repo,
		Engine:   lending.NewEngine(repo, bc, d.Log),
		Lookup:   lending.NewLookup(repo),
		Reader:   reader,
		Hub:      hub,
		Notifier: bc,
		Mailer:   mailer,
	}
}

// New connects to the database and the optional brokers named in cfg.
func New(cfg config.Config, log zerolog.Logger) (*App, error) {
	conn, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	deps := Deps{Config: cfg, Log: log, DB: conn}

	if cfg.RedisAddr != "" {
		rdb, err := connectRedis(cfg)
		if err != nil {
			return nil, err
		}
		deps.RDB = rdb
	}

	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = connectNATS(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable, continuing without it")
		} else {
			deps.Sinks = append(deps.Sinks, notify.NewNATSSink(nc, cfg.NATS.SubjectPrefix))
		}
	}

	var mc mqtt.Client
	if cfg.MQTT.Enabled {
		mc, err = connectMQTT(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("mqtt unavailable, continuing without it")
			mc = nil
		} else {
			deps.Sinks = append(deps.Sinks, notify.NewMQTTSink(mc, cfg.MQTT.QoSCritical, cfg.MQTT.QoSNormal))
		}
	}

	a := Assemble(deps)
	a.nats, a.mqtt = nc, mc

	if mc != nil {
		ingest := rfid.NewIngest(a.Reader, a.Notifier, log)
		if err := ingest.Subscribe(mc, cfg.MQTT.ScanTopic, cfg.MQTT.SensorTopic, cfg.MQTT.QoSCritical); err != nil {
			log.Warn().Err(err).Msg("mqtt subscribe failed")
		}
	}

	announceAdminPIN(cfg, log)
	return a, nil
}

// Close drains pending notifications and releases connections.
func (a *App) Close() {
	a.Hub.Close()
	a.Notifier.Close()
	if a.mqtt != nil {
		a.mqtt.Disconnect(250)
	}
	if a.nats != nil {
		a.nats.Close()
	}
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Ping checks the database and, when configured, redis.
func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.RDB != nil {
		if err := a.RDB.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
