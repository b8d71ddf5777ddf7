package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"inboxcrm/internal/config"
	"inboxcrm/internal/models"
	"inboxcrm/internal/services"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password,
		cfg.Database.Name, cfg.Database.Port, cfg.Database.SSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	err = db.AutoMigrate(
		&models.EmailTemplate{},
		&models.EmailSequence{},
		&models.SequenceStep{},
		&models.SequenceEnrollment{},
		&models.EmailTrigger{},
		&models.EntityAutomationRule{},
		&models.RuleAction{},
		&models.AutomationSendLog{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	log.Println("Creating additional indexes...")

	// Scheduler scan: due enrollments are looked up by status + next_send_at.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_enrollments_status_next_send ON sequence_enrollments(status, next_send_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_enrollments_sequence_status ON sequence_enrollments(sequence_id, status)")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_sequence_steps_sequence_order ON sequence_steps(sequence_id, step_order)")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_triggers_type_active ON email_triggers(trigger_type, is_active)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_triggers_entity_table ON email_triggers(entity_table)")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_send_log_type_status ON automation_send_logs(automation_type, status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_send_log_enrollment ON automation_send_logs(enrollment_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_send_log_created ON automation_send_logs(created_at)")

	log.Println("Additional indexes created successfully!")

	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		log.Println("Seeding entity rules...")
		ruleService := services.NewEntityRuleService(db, logrus.StandardLogger())
		if err := ruleService.EnsureEntityRules(context.Background()); err != nil {
			log.Fatalf("Failed to seed entity rules: %v", err)
		}
		log.Println("Entity rules seeded successfully!")
	}

	log.Println("Migration process completed!")
}
