package main

import (
	"log"

	"alarmclock/backend/internal/config"
	"alarmclock/backend/internal/db"
	"alarmclock/backend/migrations"
)

func main() {
	cfg := config.Load()
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, migrations.FS); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	log.Println("migrations applied successfully")
}
