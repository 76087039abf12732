// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/cache"
	"github.com/jason-s-yu/uno/service/internal/config"
	"github.com/jason-s-yu/uno/service/internal/database"
	"github.com/jason-s-yu/uno/service/internal/game"
	"github.com/jason-s-yu/uno/service/internal/handlers"
	"github.com/jason-s-yu/uno/service/internal/room"
	"github.com/jason-s-yu/uno/service/internal/store"
	"github.com/jason-s-yu/uno/service/internal/store/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log := cfg.NewLogger()
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped.")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	entry := logrus.NewEntry(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.StoreDriver == config.StoreRedis || cfg.ActionLog {
		var err error
		rdb, err = cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	var rooms store.RoomStore
	switch cfg.StoreDriver {
	case config.StoreRedis:
		rooms = cache.NewRoomStore(rdb, cfg.RedisKeyPrefix, cfg.RedisRoomTTL)
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer s.Close()
		rooms = s
	default:
		rooms = store.NewMemoryStore()
	}

	wb := room.NewWriteBack(rooms, cfg.PersistDelay, cfg.StoreTimeout, entry)
	reg := room.NewRegistry(rooms, wb, cfg.StoreTimeout, entry)
	mgr := game.NewManager(reg, game.Options{
		DefaultMaxPlayers: cfg.DefaultMaxPlayers,
		MaxPlayersLimit:   cfg.MaxPlayersLimit,
		Rules: engine.Rules{
			HandSize:   uint8(cfg.HandSize),
			UnoPenalty: uint8(cfg.UnoPenalty),
		},
	}, entry)
	if cfg.ActionLog {
		mgr.Actions = cache.NewActionLog(rdb, cfg.RedisKeyPrefix)
	}

	var results handlers.ResultLister
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		rs := database.NewResultStore(pool)
		if err := rs.Migrate(ctx); err != nil {
			return err
		}
		results = rs
		mgr.OnGameEnd = recordResults(rs, cfg.StoreTimeout, entry)
	}

	hub := handlers.NewHub(mgr, cfg.OriginPatterns, entry)
	mgr.BroadcastToPlayerFn = hub.SendToPlayer

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(hub, mgr, results, entry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wb.Run(gctx)
	})
	g.Go(func() error {
		log.Infof("Listening on %s (store: %s, history: %t, action log: %t).",
			srv.Addr, cfg.StoreDriver, results != nil, cfg.ActionLog)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down.")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	err := g.Wait()

	// Rooms still waiting for their quiet period are written now.
	fctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if ferr := wb.Flush(fctx); ferr != nil {
		log.WithError(ferr).Error("Failed to flush pending room writes.")
	} else {
		log.Info("Pending room writes flushed.")
	}
	return err
}

// recordResults stores every finished game in the history database. The write
// runs in its own goroutine; the room lock is held while OnGameEnd runs.
func recordResults(rs *database.ResultStore, timeout time.Duration, log *logrus.Entry) game.OnGameEndFunc {
	return func(state engine.GameState) {
		res := database.NewGameResult(state, time.Now())
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := rs.RecordResult(ctx, res); err != nil {
				log.WithError(err).Errorf("Room %s: failed to record game result.", res.RoomID)
				return
			}
			log.Debugf("Room %s: recorded game result %s.", res.RoomID, res.ID)
		}()
	}
}
