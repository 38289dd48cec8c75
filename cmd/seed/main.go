package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/argus-sec/argus/internal/config"
	"github.com/argus-sec/argus/internal/database"
	"github.com/argus-sec/argus/internal/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.WhitelistRule{},
		&models.AuditEvent{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	fmt.Println("✓ Database migrated successfully")

	// Seed default admin user
	adminEmail := os.Getenv("ARGUS_DEFAULT_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@localhost"
	}
	adminPassword := os.Getenv("ARGUS_DEFAULT_ADMIN_PASSWORD")

	admin := models.User{
		UUID:    uuid.NewString(),
		Email:   adminEmail,
		Name:    "Administrator",
		Role:    models.RoleAdmin,
		Enabled: true,
	}
	if adminPassword != "" {
		if err := admin.SetPassword(adminPassword); err != nil {
			log.Fatal("Failed to hash admin password:", err)
		}
	} else {
		// Without a password the account exists but cannot log in.
		admin.PasswordHash = "$2a$10$placeholder_hash_not_loginable"
	}

	var existing models.User
	if err := db.Where("email = ?", admin.Email).First(&existing).Error; err != nil {
		if err := db.Create(&admin).Error; err != nil {
			log.Fatal("Failed to seed admin user:", err)
		}
		fmt.Printf("✓ Created admin user: %s\n", admin.Email)
	} else {
		fmt.Printf("  Admin user already exists: %s\n", existing.Email)
		admin = existing
	}

	// Seed sample whitelist rules
	rules := []models.WhitelistRule{
		{
			UUID:        uuid.NewString(),
			ServiceName: "billing",
			AddressSpec: "10.0.0.0/24",
			Description: "Billing office subnet",
			CreatedByID: admin.ID,
		},
		{
			UUID:        uuid.NewString(),
			ServiceName: "reports",
			AddressSpec: "192.168.1.50",
			Description: "Reporting workstation",
			CreatedByID: admin.ID,
		},
	}

	for _, rule := range rules {
		result := db.Where("address_spec = ?", rule.AddressSpec).FirstOrCreate(&rule)
		if result.Error != nil {
			log.Printf("Failed to seed rule %s: %v", rule.AddressSpec, result.Error)
		} else if result.RowsAffected > 0 {
			fmt.Printf("✓ Created whitelist rule: %s -> %s\n", rule.ServiceName, rule.AddressSpec)
		} else {
			fmt.Printf("  Whitelist rule already exists: %s\n", rule.AddressSpec)
		}
	}

	fmt.Println("\n✓ Database seeding completed successfully!")
}
