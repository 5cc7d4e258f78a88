// Command catalog-ingest loads supplier catalog feeds into the products
// table. Feeds are gzip-compressed CSV files (id,name,price,stock), one
// product per line, and suppliers routinely repeat products across feed
// files; a per-file bloom filter pass finds the duplicates first so that
// only the last occurrence of each product is written.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000

	upsertProductSQL = `INSERT INTO products (id, name, price, stock)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, price = excluded.price, stock = excluded.stock`
)

type feedProduct struct {
	id    string
	name  string
	price decimal.Decimal
	stock int
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog*.gz feed files")
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
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "catalog*.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no catalog*.gz files in %s", dataDir)
	}

	// Pass 1: one bloom filter per file, built concurrently, to spot
	// products repeated across feeds.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Pass 2: stream each feed in order; products flagged as duplicates by a
	// LATER file's filter are skipped so the freshest occurrence wins.
	slog.Info("pass 2: writing products")

	var written, skipped uint64
	for i, f := range files {
		w, s, err := ingestFile(ctx, pool, f, filters[i+1:])
		if err != nil {
			return errors.Wrapf(err, "ingest %s", f)
		}
		written += w
		skipped += s
	}

	slog.Info("ingest summary", slog.Uint64("written", written), slog.Uint64("skipped", skipped))
	return nil
}

func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			if err := streamFeed(ctx, f, func(p feedProduct) error {
				filter.AddString(p.id)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("products", count))
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", f)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("products", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func ingestFile(
	ctx context.Context,
	pool *pgxpool.Pool,
	path string,
	laterFilters []*bloom.BloomFilter,
) (written, skipped uint64, err error) {
	err = streamFeed(ctx, path, func(p feedProduct) error {
		for _, f := range laterFilters {
			if f.TestString(p.id) {
				skipped++
				return nil
			}
		}

		if _, err := pool.Exec(ctx, upsertProductSQL, p.id, p.name, p.price, p.stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
		written++
		if written%progressEvery == 0 {
			slog.Info("pass 2 progress", slog.String("file", path), slog.Uint64("written", written))
		}
		return nil
	})
	return written, skipped, err
}

// streamFeed opens a gzip-compressed CSV feed and calls fn for each valid
// product line. Malformed lines are counted and skipped, not fatal.
func streamFeed(ctx context.Context, path string, fn func(p feedProduct) error) error {
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
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, ok := parseLine(scanner.Text())
		if !ok {
			malformed++
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	if malformed > 0 {
		slog.Warn("skipped malformed lines", slog.String("file", path), slog.Uint64("count", malformed))
	}
	return nil
}

func parseLine(line string) (feedProduct, bool) {
	parts := strings.SplitN(line, ",", 4)
	if len(parts) != 4 || parts[0] == "" || parts[1] == "" {
		return feedProduct{}, false
	}

	price, err := decimal.NewFromString(parts[2])
	if err != nil || price.IsNegative() {
		return feedProduct{}, false
	}
	stock, err := strconv.Atoi(parts[3])
	if err != nil || stock < 0 {
		return feedProduct{}, false
	}

	return feedProduct{
		id:    parts[0],
		name:  parts[1],
		price: price,
		stock: stock,
	}, true
}
