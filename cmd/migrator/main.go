package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/database"
)

func main() {
	log := logrus.New()

	configPath := flag.String("config", "/run/config.json", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Infof("driver %s creates its schema on startup, nothing to migrate", cfg.Database.Driver)
		return
	}

	version, dirty, err := database.Migrate(cfg.Database.Postgres.DbURL(), database.Migrations)
	if err != nil {
		log.Fatal(err)
	}
	log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("migration successful")
}
