package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"

	"github.com/vancomm/minesweeper/internal/app"
	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/database"
	"github.com/vancomm/minesweeper/internal/repository"
)

var (
	log = logrus.New()

	configPath string
)

func init() {
	const (
		defaultConfigPath = "/run/config.json"
		usage             = "config file path"
	)
	flag.StringVar(&configPath, "config", defaultConfigPath, usage)
	flag.StringVar(&configPath, "c", defaultConfigPath, usage+" (shorthand)")
}

func setupLogging(cfg *config.Config) {
	logLevel := logrus.InfoLevel
	if cfg.Development() {
		logLevel = logrus.DebugLevel
	}
	log.SetLevel(logLevel)
	log.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	if cfg.Log.File != "" {
		hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Level:      logLevel,
			Formatter:  &logrus.JSONFormatter{},
		})
		if err != nil {
			log.Fatal("unable to open log file: ", err)
		}
		log.AddHook(hook)
	}
}

func setupRepository(ctx context.Context, cfg *config.Config) repository.Repository {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := database.ConnectPostgres(
			ctx, cfg.Database.Postgres.DbURL(), database.Migrations,
		)
		if err != nil {
			log.Fatal("unable to connect to postgres: ", err)
		}
		return repository.NewPostgres(pool)
	default:
		db, err := database.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			log.Fatal("unable to open sqlite database: ", err)
		}
		return repository.NewSQLite(db)
	}
}

func main() {
	mainCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("unable to load .env: ", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	setupLogging(cfg)

	log.Info("starting up, mode = ", cfg.Mode)
	log.WithFields(cfg.Fields()).Debug("config")

	jwt, err := config.LoadJWT(cfg.Jwt, log)
	if err != nil {
		log.Fatal(err)
	}

	repo := setupRepository(mainCtx, cfg)
	defer repo.Close()

	if err := app.New(cfg, log, repo, jwt, nil).Run(mainCtx); err != nil {
		log.Error("exit reason: ", err)
	}
}
