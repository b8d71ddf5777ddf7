package main

import (
	"context"
	"fmt"

	"inboxcrm/internal/config"
	"inboxcrm/internal/services"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// seedCmd creates the one rule row per entity table, skipping tables that
// already have one.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed entity automation rules for all known entity tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password,
			cfg.Database.Name, cfg.Database.Port, cfg.Database.SSLMode,
		)
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		ruleService := services.NewEntityRuleService(db, logrus.StandardLogger())
		if err := ruleService.EnsureEntityRules(context.Background()); err != nil {
			return err
		}
		fmt.Println("entity rules seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
