package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"example.com/dicehall/internal/config"
	"example.com/dicehall/internal/game"
	"example.com/dicehall/internal/httpapi"
	"example.com/dicehall/internal/migrate"
	"example.com/dicehall/internal/room"
	"example.com/dicehall/internal/store"
)

const resultWriteTimeout = 5 * time.Second

// App wires the room server, the optional results store, and the HTTP
// surface together.
type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	srv *http.Server
}

type Options struct {
	Static http.Handler // optional; if nil, no frontend is served
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	// --- Postgres (optional) ---
	var db *pgxpool.Pool
	var results *store.ResultsStore
	if cfg.Postgres.URL != "" {
		if cfg.Postgres.RunMigrations {
			if err := migrate.Up(cfg.Postgres.URL, cfg.Postgres.MigrationsDir, log); err != nil {
				return nil, err
			}
		}

		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		db = pool
		results = store.NewResultsStore(pool)
	} else {
		log.Info("no DATABASE_URL set, running without results history")
	}

	// --- Rooms ---
	registry := room.NewRegistry(log, finishedHook(results, log))
	roomSrv := room.NewServer(registry, log)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	roomSrv.RegisterRoutes(r)

	if results != nil {
		lb := &httpapi.LeaderboardHandler{Results: results, Log: log}
		r.Get("/api/leaderboard", lb.Top)
	}

	if opts.Static != nil {
		r.Handle("/*", opts.Static)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	return &App{cfg: cfg, log: log, db: db, srv: srv}, nil
}

// finishedHook records every player's final total once a room finishes. The
// hook runs under the room lock, so the write happens on its own goroutine
// with its own deadline.
func finishedHook(results *store.ResultsStore, log *slog.Logger) room.FinishedHook {
	if results == nil {
		return nil
	}
	return func(code string, players []game.Player, scorecards map[string]game.Scorecard) {
		finishedAt := time.Now().UTC()

		best := 0
		totals := make(map[string]int, len(players))
		for _, p := range players {
			t := game.Total(scorecards[p.ID])
			totals[p.ID] = t
			if t > best {
				best = t
			}
		}

		rows := make([]store.GameResult, 0, len(players))
		for _, p := range players {
			rows = append(rows, store.GameResult{
				RoomCode:   code,
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Total:      totals[p.ID],
				Won:        totals[p.ID] == best,
				FinishedAt: finishedAt,
			})
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), resultWriteTimeout)
			defer cancel()
			if err := results.Record(ctx, rows); err != nil {
				log.Error("record game results", "room", code, "err", err)
			}
		}()
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	err := g.Wait()
	a.Close()
	return err
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
