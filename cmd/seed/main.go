package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"reservely/internal/capacity"
	"reservely/internal/events"
	"reservely/internal/identity"
	"reservely/internal/shared/config"
	"reservely/internal/shared/database"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Reservely Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Delete in reverse dependency order
	tables := []string{
		"outbox_entries",
		"holds",
		"group_reservations",
		"slot_ledger_entries",
		"capacity_configs",
		"access_types",
		"events",
		"participants",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	participantIDs, err := s.SeedParticipants()
	if err != nil {
		return fmt.Errorf("failed to seed participants: %w", err)
	}
	fmt.Printf("  👤 Seeded %d participants\n", len(participantIDs))

	eventIDs, accessTypeIDs, err := s.SeedEvents()
	if err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	if err := s.SeedCapacityConfigs(eventIDs, accessTypeIDs); err != nil {
		return fmt.Errorf("failed to seed capacity configs: %w", err)
	}

	// Clear Redis cache to ensure fresh state
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedParticipants creates a small roster of known identities
func (s *Seeder) SeedParticipants() ([]uuid.UUID, error) {
	participantsData := []struct {
		name  string
		email string
	}{
		{"Ava Torres", "ava.torres@example.com"},
		{"Ben Okafor", "ben.okafor@example.com"},
		{"Chloe Lindgren", "chloe.lindgren@example.com"},
		{"Diego Ramos", "diego.ramos@example.com"},
		{"Elif Kaya", "elif.kaya@example.com"},
		{"Farah Nasser", "farah.nasser@example.com"},
		{"Gustav Holm", "gustav.holm@example.com"},
		{"Hana Sato", "hana.sato@example.com"},
	}

	ids := make([]uuid.UUID, 0, len(participantsData))
	for _, data := range participantsData {
		participant := identity.Participant{
			ID:       uuid.New(),
			Name:     data.name,
			Email:    data.email,
			IsActive: true,
		}
		if err := s.db.PostgreSQL.Create(&participant).Error; err != nil {
			return nil, fmt.Errorf("failed to create participant %s: %w", data.email, err)
		}
		ids = append(ids, participant.ID)
	}

	return ids, nil
}

// SeedEvents creates events with their access types; the first access type
// of each event is the default general-access one
func (s *Seeder) SeedEvents() ([]uuid.UUID, map[string]uuid.UUID, error) {
	fmt.Println("  🎟️  Seeding events and access types...")

	eventsData := []struct {
		name        string
		daysOut     int
		accessTypes []string
	}{
		{"Go Conference 2026", 30, []string{"General Admission", "VIP"}},
		{"Jazz in the Park", 14, []string{"General Admission"}},
		{"Winter Hackathon", 60, []string{"General Admission", "Mentor Pass"}},
	}

	eventIDs := make([]uuid.UUID, 0, len(eventsData))
	accessTypeIDs := make(map[string]uuid.UUID)

	for _, data := range eventsData {
		event := events.Event{
			ID:       uuid.New(),
			Name:     data.name,
			Status:   events.EventStatusPublished,
			StartsAt: time.Now().UTC().AddDate(0, 0, data.daysOut),
		}
		for i, accessTypeName := range data.accessTypes {
			accessType := events.AccessType{
				ID:        uuid.New(),
				Name:      accessTypeName,
				IsDefault: i == 0,
			}
			event.AccessTypes = append(event.AccessTypes, accessType)
			accessTypeIDs[data.name+"/"+accessTypeName] = accessType.ID
		}

		if err := s.db.PostgreSQL.Create(&event).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to create event %s: %w", data.name, err)
		}
		eventIDs = append(eventIDs, event.ID)
		fmt.Printf("    Created event: %s (%d access types)\n", data.name, len(data.accessTypes))
	}

	return eventIDs, accessTypeIDs, nil
}

// SeedCapacityConfigs gives every access type an active capacity config
func (s *Seeder) SeedCapacityConfigs(eventIDs []uuid.UUID, accessTypeIDs map[string]uuid.UUID) error {
	fmt.Println("  📊 Seeding capacity configs...")

	configsData := []struct {
		key                   string
		eventIndex            int
		totalCapacity         int
		overbookingPercentage int
		holdTimeoutMinutes    int
	}{
		{"Go Conference 2026/General Admission", 0, 500, 10, 15},
		{"Go Conference 2026/VIP", 0, 50, 0, 15},
		{"Jazz in the Park/General Admission", 1, 200, 5, 10},
		{"Winter Hackathon/General Admission", 2, 120, 0, 30},
		{"Winter Hackathon/Mentor Pass", 2, 20, 0, 30},
	}

	for _, data := range configsData {
		cfg := capacity.CapacityConfig{
			ID:                    uuid.New(),
			EventID:               eventIDs[data.eventIndex],
			AccessTypeID:          accessTypeIDs[data.key],
			TotalCapacity:         data.totalCapacity,
			OverbookingPercentage: data.overbookingPercentage,
			HoldTimeoutMinutes:    data.holdTimeoutMinutes,
			IsActive:              true,
			AlertAdmins:           true,
			NotifyUsers:           data.overbookingPercentage > 0,
		}
		if err := s.db.PostgreSQL.Create(&cfg).Error; err != nil {
			return fmt.Errorf("failed to create capacity config %s: %w", data.key, err)
		}
		fmt.Printf("    %s: capacity %d, overbooking %d%%\n", data.key, data.totalCapacity, data.overbookingPercentage)
	}

	return nil
}
