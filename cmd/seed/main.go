// ABOUTME: Seeds a pipeboard database with a demo pipeline, contacts, deals and sequences.
// ABOUTME: Supports dry-run and a file backup before writing.

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/logging"
	"github.com/harperreed/pipeboard/models"
	"github.com/rs/zerolog"
)

type demoContact struct {
	contact models.Contact
	tag     string
}

type demoDeal struct {
	title    string
	value    int64
	stage    int
	contact  int
	priority models.Priority
}

var (
	demoStages = []models.StageForm{
		{Name: "Lead", Color: "#9ca3af", Probability: 10},
		{Name: "Qualified", Color: "#60a5fa", Probability: 30},
		{Name: "Proposal", Color: "#a78bfa", Probability: 60},
		{Name: "Negotiation", Color: "#f59e0b", Probability: 80},
		{Name: "Won", Color: "#34d399", Probability: 100},
	}

	demoContacts = []demoContact{
		{models.Contact{Name: "Ada Lovelace", Email: "ada@analytical.test", Company: "Analytical Engines", Status: "prospect"}, "enterprise"},
		{models.Contact{Name: "Grace Hopper", Email: "grace@cobol.test", Company: "Cobol Systems", Status: "customer"}, "enterprise"},
		{models.Contact{Name: "Alan Turing", Email: "alan@bletchley.test", Company: "Bletchley Labs", Status: "lead"}, "startup"},
		{models.Contact{Name: "Katherine Johnson", Email: "kj@orbital.test", Company: "Orbital Mechanics", Status: "lead"}, ""},
	}

	demoDeals = []demoDeal{
		{"Analytical Engines rollout", 4_500_000, 0, 0, models.PriorityHigh},
		{"Cobol Systems renewal", 1_200_000, 3, 1, models.PriorityMedium},
		{"Bletchley pilot", 300_000, 1, 2, models.PriorityLow},
		{"Orbital analytics", 2_750_000, 2, 3, models.PriorityMedium},
		{"Cobol Systems upsell", 800_000, 0, 1, models.PriorityLow},
	}
)

func main() {
	dbPath := flag.String("db", filepath.Join(xdg.DataHome, "pipeboard", "pipeboard.db"), "Path to database file")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	backup := flag.Bool("backup", true, "Create backup before seeding an existing database")
	force := flag.Bool("force", false, "Seed even if pipelines already exist")
	flag.Parse()

	logger, closer, err := logging.New("seed", logging.Config{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	if err := seed(context.Background(), logger, *dbPath, *dryRun, *backup, *force); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}
	logger.Info().Str("path", *dbPath).Msg("seeding completed successfully")
}

func seed(ctx context.Context, logger zerolog.Logger, dbPath string, dryRun, createBackup, force bool) error {
	_, statErr := os.Stat(dbPath)
	exists := statErr == nil

	if dryRun {
		logger.Info().Msg("[DRY RUN] Would perform the following actions:")
		if !exists {
			logger.Info().Str("path", dbPath).Msg("[DRY RUN] - Create database")
		}
		logger.Info().Msgf("[DRY RUN] - Create pipeline Sales with %d stages", len(demoStages))
		logger.Info().Msgf("[DRY RUN] - Create %d contacts and %d deals", len(demoContacts), len(demoDeals))
		logger.Info().Msg("[DRY RUN] - Create sequences Onboarding (active) and Win-back (paused)")
		return nil
	}

	if exists && createBackup {
		backupPath := fmt.Sprintf("%s.backup.%s", dbPath, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(dbPath)
		if err != nil {
			return fmt.Errorf("failed to read database: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		logger.Info().Str("backup", backupPath).Msg("backup created")
	}

	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	existing, err := db.ListPipelines(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to list pipelines: %w", err)
	}
	if len(existing) > 0 && !force {
		logger.Warn().Int("pipelines", len(existing)).Msg("database already has pipelines")
		return fmt.Errorf("seeding requires -force flag on a non-empty database")
	}

	return seedDemo(ctx, logger, database, len(existing) == 0)
}

func seedDemo(ctx context.Context, logger zerolog.Logger, database *sql.DB, isDefault bool) error {
	pipeline, err := db.CreatePipeline(ctx, database, models.PipelineForm{
		Name:        "Sales",
		Description: "Demo sales pipeline",
		IsDefault:   isDefault,
		Active:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	stages := make([]*models.Stage, len(demoStages))
	for i, form := range demoStages {
		form.Position = i
		stages[i], err = db.CreateStage(ctx, database, pipeline.ID, form)
		if err != nil {
			return fmt.Errorf("failed to create stage %s: %w", form.Name, err)
		}
	}
	logger.Info().Str("pipeline", pipeline.Name).Int("stages", len(stages)).Msg("pipeline created")

	tags := map[string]*models.Tag{}
	contacts := make([]models.Contact, len(demoContacts))
	for i, dc := range demoContacts {
		c := dc.contact
		if err := db.CreateContact(ctx, database, &c); err != nil {
			return fmt.Errorf("failed to create contact %s: %w", c.Name, err)
		}
		contacts[i] = c

		if dc.tag == "" {
			continue
		}
		tag, ok := tags[dc.tag]
		if !ok {
			tag = &models.Tag{Name: dc.tag}
			if err := db.CreateTag(ctx, database, tag); err != nil {
				return fmt.Errorf("failed to create tag %s: %w", dc.tag, err)
			}
			tags[dc.tag] = tag
		}
		if err := db.TagContact(ctx, database, c.ID, tag.ID); err != nil {
			return fmt.Errorf("failed to tag %s: %w", c.Name, err)
		}
	}
	logger.Info().Int("contacts", len(contacts)).Int("tags", len(tags)).Msg("contacts created")

	for _, dd := range demoDeals {
		deal, err := db.CreateDeal(ctx, database, models.DealInput{
			Title:      dd.title,
			Value:      dd.value,
			Currency:   "USD",
			ContactID:  contacts[dd.contact].ID,
			PipelineID: pipeline.ID,
			Priority:   dd.priority,
		})
		if err != nil {
			return fmt.Errorf("failed to create deal %s: %w", dd.title, err)
		}
		if dd.stage > 0 {
			if _, _, err := db.UpdateDealStage(ctx, database, deal.ID, stages[dd.stage].ID); err != nil {
				return fmt.Errorf("failed to place deal %s: %w", dd.title, err)
			}
		}
	}
	logger.Info().Int("deals", len(demoDeals)).Msg("deals created")

	for _, seq := range []models.Sequence{
		{Name: "Onboarding", Status: models.SequenceStatusActive, StepCount: 4},
		{Name: "Win-back", Status: models.SequenceStatusPaused, StepCount: 3},
	} {
		if err := db.CreateSequence(ctx, database, &seq); err != nil {
			return fmt.Errorf("failed to create sequence %s: %w", seq.Name, err)
		}
	}

	account := &models.EmailAccount{Address: "sales@pipeboard.test", DisplayName: "Pipeboard Sales"}
	if err := db.CreateEmailAccount(ctx, database, account); err != nil {
		return fmt.Errorf("failed to create email account: %w", err)
	}
	if err := db.LogEmail(ctx, database, models.EmailMessage{
		AccountID: account.ID,
		ContactID: contacts[1].ID,
		To:        contacts[1].Email,
		Subject:   "Renewal timeline",
	}, time.Now().Add(-72*time.Hour)); err != nil {
		return fmt.Errorf("failed to log email: %w", err)
	}
	logger.Info().Str("account", account.Address).Msg("sequences and email account created")
	return nil
}
