package main

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"strconv"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_onboarding/internal/adapters/observability"
	redisad "hotel_onboarding/internal/adapters/redis"
	"hotel_onboarding/internal/adapters/webhook"
	"hotel_onboarding/internal/app"
	"hotel_onboarding/internal/domain"
	"hotel_onboarding/internal/shared"
	mysqlstore "hotel_onboarding/internal/storage/mysql"
)

// migrator bulk-migrates legacy hotel records into the canonical
// aggregate. Legacy ids are read one per line from stdin or from the
// file named by the first argument; migration is idempotent, so re-runs
// after a partial batch are safe.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	ids, err := readIDs()
	if err != nil {
		log.Fatal().Err(err).Msg("reading legacy ids failed")
	}
	log.Info().Int("count", len(ids)).Int("workers", cfg.Workers).Msg("migrator starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	store := mysqlstore.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var notifier domain.Notifier
	if cfg.WebhookBase != "" {
		wh, err := webhook.New(cfg.WebhookBase, cfg.WebhookKey, cfg.WebhookRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("webhook client init failed")
		}
		notifier = wh
	}
	integrator := app.NewIntegrationService(store, store, notifier, cache)

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, id := range ids {
		id := id

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(legacyID int64) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := integrator.MigrateLegacyHotel(ctx, legacyID)
			if err != nil {
				log.Warn().Int64("legacy", legacyID).Err(err).Msg("migrate failed")
				return
			}
			if res.AlreadyCompleted {
				log.Info().Int64("legacy", legacyID).Int64("hotel", res.HotelID).Msg("already migrated")
				return
			}
			log.Info().Int64("legacy", legacyID).Int64("hotel", res.HotelID).
				Int("score", res.QualityScore).Msg("migrate ok")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("migration completed")
}

func readIDs() ([]int64, error) {
	in := os.Stdin
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	var ids []int64
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			log.Warn().Str("line", line).Msg("skipping non-numeric legacy id")
			continue
		}
		ids = append(ids, id)
	}
	return ids, sc.Err()
}
