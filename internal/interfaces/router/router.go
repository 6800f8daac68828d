package router

import (
	appcheckins "sentinel-backend/internal/application/checkins"
	appdds "sentinel-backend/internal/application/dds"
	applockup "sentinel-backend/internal/application/lockup"
	apppresence "sentinel-backend/internal/application/presence"
	appqualifications "sentinel-backend/internal/application/qualifications"
	"sentinel-backend/internal/config"
	"sentinel-backend/internal/event"
	checkinshandlers "sentinel-backend/internal/interfaces/handlers/checkins"
	ddshandlers "sentinel-backend/internal/interfaces/handlers/dds"
	healthhandlers "sentinel-backend/internal/interfaces/handlers/health"
	lockuphandlers "sentinel-backend/internal/interfaces/handlers/lockup"
	presencehandlers "sentinel-backend/internal/interfaces/handlers/presence"
	qualificationshandlers "sentinel-backend/internal/interfaces/handlers/qualifications"
	"sentinel-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App bundles the fiber app with the services the entrypoint and jobs need.
type App struct {
	Fiber    *fiber.App
	Bus      *event.Bus
	Lockup   *applockup.Service
	DDS      *appdds.Service
	Presence *apppresence.Service
}

// CreateApp wires services, middleware and routes. rdb may be nil; the
// presence cache degrades to database reads.
func CreateApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := fiber.New(fiber.Config{
		AppName:      "sentinel-backend",
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		KioskKey:      cfg.KioskKey,
	}))
	app.Use(middleware.RouteLogger())

	bus := event.NewBus()

	presenceService := &apppresence.Service{
		DB:           db,
		Cache:        &apppresence.DirectionCache{Rdb: rdb},
		DayStartHour: cfg.DayStartHour,
	}
	qualificationsService := &appqualifications.Service{DB: db}
	lockupService := &applockup.Service{
		DB:             db,
		Qualifications: qualificationsService,
		Presence:       presenceService,
		DayStartHour:   cfg.DayStartHour,
	}
	ddsService := &appdds.Service{DB: db, Lockup: lockupService, DayStartHour: cfg.DayStartHour}
	checkinsService := &appcheckins.Service{
		DB:       db,
		Lockup:   lockupService,
		Presence: presenceService,
		Bus:      bus,
		Logger:   log.Logger,
	}

	hook := &appdds.CheckinHook{DDS: ddsService, Logger: log.Logger}
	hook.Register(bus)

	lockupHandler := lockuphandlers.NewHandler(lockupService)
	ddsHandler := ddshandlers.NewHandler(ddsService)
	checkinsHandler := checkinshandlers.NewHandler(checkinsService)
	qualificationsHandler := qualificationshandlers.NewHandler(qualificationsService)
	presenceHandler := presencehandlers.NewHandler(presenceService)
	healthHandler := healthhandlers.NewHandler(db, rdb)

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	lk := api.Group("/lockup")
	lk.Get("/status", lockupHandler.GetStatus)
	lk.Get("/status/:date", lockupHandler.GetStatusByDate)
	lk.Post("/acquire/:memberId", lockupHandler.Acquire)
	lk.Post("/transfer", lockupHandler.Transfer)
	lk.Post("/execute/:memberId", lockupHandler.Execute)
	lk.Post("/release", lockupHandler.Release)
	lk.Get("/checkout-options/:memberId", lockupHandler.CheckoutOptions)
	lk.Get("/history", lockupHandler.History)
	lk.Get("/check-auth/:memberId", lockupHandler.CheckAuth)

	dd := api.Group("/dds")
	dd.Get("/current", ddsHandler.Current)
	dd.Get("/exists", ddsHandler.Exists)
	dd.Post("/assign", ddsHandler.Assign)
	dd.Post("/schedule", ddsHandler.Schedule)
	dd.Post("/accept/:memberId", ddsHandler.Accept)
	dd.Post("/transfer", ddsHandler.Transfer)
	dd.Post("/release", ddsHandler.Release)
	dd.Get("/audit-log", ddsHandler.AuditLog)

	api.Post("/checkins", checkinsHandler.Create)

	q := api.Group("/qualifications")
	q.Get("/types", qualificationsHandler.ListTypes)
	q.Get("/eligible", qualificationsHandler.EligibleMembers)
	q.Get("/member/:memberId", qualificationsHandler.ListForMember)
	q.Post("/grant", qualificationsHandler.Grant)
	q.Post("/revoke", qualificationsHandler.Revoke)

	p := api.Group("/presence")
	p.Get("/stats", presenceHandler.Stats)
	p.Get("/members", presenceHandler.Members)
	p.Get("/visitors", presenceHandler.Visitors)

	return &App{
		Fiber:    app,
		Bus:      bus,
		Lockup:   lockupService,
		DDS:      ddsService,
		Presence: presenceService,
	}
}
