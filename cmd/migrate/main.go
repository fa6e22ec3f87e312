package main

import (
	"context" // Seeding context

	"fin_flow/internal/config" // Custom import path (Config)
	"fin_flow/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	gdb, err := db.Open(cfg) // Connect using the configured driver
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("%v", err)
	}
	// Seed the first administrator when configured
	if cfg.AdminUser != "" {
		if _, err := db.SeedSuperAdmin(context.Background(), gdb, cfg.AdminUser, cfg.AdminPass); err != nil {
			logrus.Fatalf("failed to seed superadmin: %v", err)
		}
	}
}
