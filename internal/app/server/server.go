package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ibooking/internal/db"
	"ibooking/internal/domain/audit"
	"ibooking/internal/domain/auth"
	"ibooking/internal/domain/booking"
	"ibooking/internal/domain/notifications"
	"ibooking/internal/domain/reminder"
	"ibooking/internal/domain/reports"
	"ibooking/internal/platform/config"
	"ibooking/internal/platform/crypto"
	"ibooking/internal/platform/email"
	"ibooking/internal/platform/jobs"
	"ibooking/internal/platform/metrics"
	adminhandler "ibooking/internal/transport/http/handlers/admin"
	audithandler "ibooking/internal/transport/http/handlers/audit"
	bookinghandler "ibooking/internal/transport/http/handlers/booking"
	notificationshandler "ibooking/internal/transport/http/handlers/notifications"
	reminderhandler "ibooking/internal/transport/http/handlers/reminder"
	reportshandler "ibooking/internal/transport/http/handlers/reports"
	"ibooking/internal/transport/http/middleware"
)

// App wires the two engines, their stores and the HTTP surface. With a
// DATABASE_URL the stores are Postgres; without one the service runs
// fully in memory, which is how the test suite exercises it.
type App struct {
	Config    config.Config
	Router    http.Handler
	Bookings  *booking.Service
	Reminders *reminder.Service
	Jobs      *jobs.Service
	Metrics   *metrics.Collector

	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cryptoSvc, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	var (
		pool          *pgxpool.Pool
		bookingStore  booking.StoreAPI
		reminderStore reminder.StoreAPI
		notifStore    notifications.StoreAPI
		auditStore    audit.StoreAPI
		idemStore     middleware.IdempotencyStore
	)
	if cfg.DatabaseURL != "" {
		pool, err = db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, "migrations"); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		bookingStore = booking.NewStore(pool, cryptoSvc)
		reminderStore = reminder.NewStore(pool, cryptoSvc)
		notifStore = notifications.NewStore(pool)
		auditStore = audit.NewStore(pool)
		idemStore = middleware.NewPgIdempotencyStore(pool)
	} else {
		slog.Warn("no DATABASE_URL configured, using in-memory stores")
		bookingStore = booking.NewMemoryStore()
		reminderStore = reminder.NewMemoryStore()
		notifStore = notifications.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
		idemStore = middleware.NewMemoryIdempotencyStore()
	}

	reminderSvc := reminder.NewService(reminderStore, counterAdapter{store: bookingStore})

	inventory := booking.InventoryConfig{
		HorizonDays:  cfg.HorizonDays,
		SlotStarts:   cfg.SlotStarts,
		SlotMinutes:  cfg.SlotMinutes,
		WorkingDays:  booking.DefaultInventoryConfig().WorkingDays,
		MinLeadHours: cfg.MinLeadHours,
	}
	bookingSvc := booking.NewService(bookingStore, policyAdapter{reminders: reminderSvc}, inventory)

	notifySvc := notifications.New(notifStore, email.New(cfg))
	notifySvc.DefaultFrom = cfg.EmailFrom
	auditSvc := audit.New(auditStore)
	reportsSvc := reports.NewService(bookingSvc, reminderSvc)
	collector := metrics.New()
	perms := auth.StaticPermissions{}

	if cfg.SeedData {
		if err := db.Seed(ctx, bookingStore, reminderStore, slog.Default()); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	if _, _, err := bookingSvc.RollHorizon(ctx); err != nil {
		return nil, fmt.Errorf("initial horizon roll: %w", err)
	}

	jobsSvc := jobs.New()
	registerJobs(jobsSvc, bookingSvc, reminderSvc, notifySvc, collector)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	if cfg.MetricsEnabled {
		router.Use(middleware.Logger(collector))
	} else {
		router.Use(middleware.Logger(nil))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		bookinghandler.NewHandler(bookingSvc, perms, notifySvc, auditSvc, collector, idemStore).RegisterRoutes(r)
		reminderhandler.NewHandler(reminderSvc, perms, auditSvc).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, perms).RegisterRoutes(r)
		reportshandler.NewHandler(reportsSvc, perms).RegisterRoutes(r)
		adminhandler.NewHandler(jobsSvc, collector, perms).RegisterRoutes(r)
	})

	return &App{
		Config:    cfg,
		Router:    router,
		Bookings:  bookingSvc,
		Reminders: reminderSvc,
		Jobs:      jobsSvc,
		Metrics:   collector,
		pool:      pool,
	}, nil
}

// registerJobs binds the two maintenance jobs: the daily horizon roll
// and the reminder dispatch batch.
func registerJobs(jobsSvc *jobs.Service, bookings *booking.Service, reminders *reminder.Service, notify *notifications.Service, collector *metrics.Collector) {
	jobsSvc.Register(jobs.JobHorizonRoll, func(ctx context.Context) (any, error) {
		created, removed, err := bookings.RollHorizon(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int{"created": created, "removed": removed}, nil
	})

	jobsSvc.Register(jobs.JobReminderBatch, func(ctx context.Context) (any, error) {
		batch, err := reminders.TodaysBatch(ctx)
		if err != nil {
			return nil, err
		}
		emitted := 0
		for _, schedule := range batch {
			profile, err := reminders.GetProfile(ctx, schedule.EmployeeID)
			if err != nil {
				slog.Warn("reminder batch profile load failed", "employeeId", schedule.EmployeeID, "err", err)
				continue
			}
			ntype := notifications.TypeReminderDue
			title := "Interview reminder"
			if schedule.IsOverdue {
				ntype = notifications.TypeReminderOverdue
				title = "Interview overdue"
			}
			body := reminderBody(schedule)
			if err := notify.Notify(ctx, profile.EmployeeID, profile.Email, ntype, title, body); err != nil {
				slog.Warn("reminder notification failed", "employeeId", profile.EmployeeID, "err", err)
				continue
			}
			emitted++
		}
		collector.RemindersEmitted(emitted)
		return map[string]int{"schedules": len(batch), "emitted": emitted}, nil
	})
}

func reminderBody(schedule reminder.ReminderSchedule) string {
	if schedule.IsOverdue {
		return fmt.Sprintf("Your mandatory interview is %d day(s) overdue. Please book a slot as soon as possible.", schedule.DaysSinceOverdue)
	}
	if schedule.NextDueDate != nil {
		return "Your next mandatory interview is due on " + schedule.NextDueDate.Format("2006-01-02") + ". Please book a slot."
	}
	return "Please book your next mandatory interview."
}

// Run is the process entrypoint: load config, build the app, start the
// job scheduler and serve.
func Run() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	app.Jobs.Start(ctx, map[string]time.Duration{
		jobs.JobHorizonRoll:   cfg.HorizonRollInterval,
		jobs.JobReminderBatch: cfg.ReminderBatchInterval,
	})

	slog.Info("interview booking server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
