// Command lab-ingest bulk-loads scraped lab datasets. Dumps are gzipped
// JSONL files, one lab per line, and different scrape runs overlap: a lab is
// only trusted once it shows up in at least two dumps. Pass 1 builds one
// bloom filter per file, pass 2 cross-checks every line against the other
// files' filters and upserts the survivors.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/gradmate/gradmate/internal/domain/lab"
	"github.com/gradmate/gradmate/internal/storage/postgres"
)

const (
	bloomCapacity = 5_000_000
	bloomFPR      = 0.001
	progressEvery = 500_000
)

type professorRecord struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// labRecord is one JSONL line from a scrape dump.
type labRecord struct {
	School       string            `json:"school"`
	SchoolDomain string            `json:"school_domain"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	URL          string            `json:"url"`
	Professors   []professorRecord `json:"professors"`
}

// key identifies a lab across dumps regardless of casing.
func (r labRecord) key() string {
	return strings.ToLower(strings.TrimSpace(r.School)) + "|" + strings.ToLower(strings.TrimSpace(r.Name))
}

// fileResult holds candidate labs found in a single file during pass 2.
type fileResult struct {
	candidates map[string]uint
	records    map[string]labRecord
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz lab dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("lab ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("lab ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) < 2 {
		return errors.Errorf("need at least 2 dumps to cross-check, found %d in %s", len(files), dataDir)
	}

	// Pass 1: build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: keep labs appearing in 2+ dumps.
	slog.Info("pass 2: finding confirmed labs")

	confirmed, err := findConfirmedLabs(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed labs")
	}

	slog.Info("confirmed labs found", slog.Int("count", len(confirmed)))

	if len(confirmed) == 0 {
		slog.Info("no confirmed labs to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeLabs(ctx, postgres.NewLabRepository(pool), confirmed); err != nil {
		return errors.Wrap(err, "write labs to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(rec labRecord) {
			filter.AddString(rec.key())
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("labs", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_labs", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedLabs re-streams each file and checks keys against OTHER files'
// bloom filters. A lab is confirmed when it appears in 2 or more dumps.
func findConfirmedLabs(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]labRecord, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all files, keeping the first record seen per key.
	merged := make(map[string]uint)
	records := make(map[string]labRecord)
	for _, r := range results {
		for key, mask := range r.candidates {
			merged[key] |= mask
			if _, ok := records[key]; !ok {
				records[key] = r.records[key]
			}
		}
	}

	var confirmed []labRecord
	for key, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, records[key])
		}
	}

	return confirmed, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		records := make(map[string]labRecord)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(rec labRecord) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("labs", count),
				)
			}

			key := rec.key()
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(key) {
					candidates[key] |= fileBit
					if _, ok := records[key]; !ok {
						records[key] = rec
					}
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_labs", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates, records: records}
		return nil
	}
}

// streamGzFile opens a gzip-compressed JSONL file and calls fn for each
// decodable line. Malformed lines are counted and skipped.
func streamGzFile(ctx context.Context, path string, fn func(rec labRecord)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	var malformed uint64
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec labRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			malformed++
			continue
		}
		if rec.School == "" || rec.Name == "" {
			malformed++
			continue
		}
		fn(rec)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	if malformed > 0 {
		slog.Warn("skipped malformed lines", slog.String("file", path), slog.Uint64("count", malformed))
	}

	return nil
}

// writeLabs upserts all confirmed labs with their schools and professors.
// School IDs are cached by lowercased name so dumps sharing a school do not
// hit the database once per lab.
func writeLabs(ctx context.Context, repo *postgres.LabRepository, confirmed []labRecord) error {
	slog.Info("writing labs to database", slog.Int("count", len(confirmed)))

	schoolIDs := make(map[string]string)

	for i, rec := range confirmed {
		schoolKey := strings.ToLower(strings.TrimSpace(rec.School))
		schoolID, ok := schoolIDs[schoolKey]
		if !ok {
			var err error
			schoolID, err = repo.UpsertSchool(ctx, &lab.School{
				Name:   strings.TrimSpace(rec.School),
				Domain: rec.SchoolDomain,
			})
			if err != nil {
				return errors.Wrapf(err, "upsert school %s", rec.School)
			}
			schoolIDs[schoolKey] = schoolID
		}

		labID, err := repo.UpsertLab(ctx, &lab.Lab{
			SchoolID:    schoolID,
			Name:        strings.TrimSpace(rec.Name),
			Description: rec.Description,
			URL:         rec.URL,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert lab %s", rec.Name)
		}

		for _, p := range rec.Professors {
			if p.Name == "" {
				continue
			}
			if err := repo.UpsertProfessor(ctx, &lab.Professor{
				LabID: labID,
				Name:  p.Name,
				Email: p.Email,
				Role:  p.Role,
			}); err != nil {
				return errors.Wrapf(err, "upsert professor %s", p.Name)
			}
		}

		if (i+1)%100 == 0 || i+1 == len(confirmed) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(confirmed)))
		}
	}

	return nil
}
