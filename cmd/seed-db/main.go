// Command seed-db bootstraps a development database: schema migrations, a
// handful of schools with labs and professors, and an API key for the
// AI-facing endpoints.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/gradmate/gradmate/internal/domain/auth"
	"github.com/gradmate/gradmate/internal/domain/lab"
	"github.com/gradmate/gradmate/internal/storage/postgres"
)

type professorJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type labJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Professors  []professorJSON `json:"professors"`
}

type schoolJSON struct {
	Name   string    `json:"name"`
	Domain string    `json:"domain"`
	Labs   []labJSON `json:"labs"`
}

func main() {
	var (
		databaseURL  string
		labsFile     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&labsFile, "labs-file", "db/seed/labs.json", "path to schools and labs JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or GRADMATE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or GRADMATE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("GRADMATE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or GRADMATE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("GRADMATE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, labsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, labsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedSchools(ctx, postgres.NewLabRepository(pool), labsFile); err != nil {
		return errors.Wrap(err, "seed schools")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedSchools(ctx context.Context, repo *postgres.LabRepository, labsFile string) error {
	slog.Info("reading labs file", slog.String("path", labsFile))

	data, err := os.ReadFile(labsFile)
	if err != nil {
		return errors.Wrap(err, "read labs file")
	}

	var schools []schoolJSON
	if err := json.Unmarshal(data, &schools); err != nil {
		return errors.Wrap(err, "parse labs JSON")
	}

	slog.Info("upserting schools", slog.Int("count", len(schools)))

	for _, s := range schools {
		schoolID, err := repo.UpsertSchool(ctx, &lab.School{
			Name:   s.Name,
			Domain: s.Domain,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert school %s", s.Name)
		}

		for _, l := range s.Labs {
			labID, err := repo.UpsertLab(ctx, &lab.Lab{
				SchoolID:    schoolID,
				Name:        l.Name,
				Description: l.Description,
				URL:         l.URL,
			})
			if err != nil {
				return errors.Wrapf(err, "upsert lab %s", l.Name)
			}

			for _, p := range l.Professors {
				if err := repo.UpsertProfessor(ctx, &lab.Professor{
					LabID: labID,
					Name:  p.Name,
					Email: p.Email,
					Role:  p.Role,
				}); err != nil {
					return errors.Wrapf(err, "upsert professor %s", p.Name)
				}
			}
		}

		slog.Info("upserted school",
			slog.String("name", s.Name),
			slog.Int("labs", len(s.Labs)),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	keyHash := auth.HashAPIKey(apiKey, []byte(pepper))

	if err := repo.Upsert(ctx, keyHash, "Default dev key", []string{"generate_email", "discover_labs"}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("name", "Default dev key"))

	return nil
}
