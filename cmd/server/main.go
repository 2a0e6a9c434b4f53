package main

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/classtrack/go-classtrack"
	"github.com/classtrack/go-classtrack/booking"
	"github.com/classtrack/go-classtrack/provider/local"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views
var viewsFS embed.FS

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/fixtures/*.yml
var fixturesFS embed.FS

type App struct {
	config   *Config
	bunDB    *bun.DB
	provider *local.Provider
	sessions *classtrack.SessionManager
	booking  *booking.Service
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("classtrack"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := LoadConfig()
	if err != nil {
		lgr.Error("config load failed", "error", err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		lgr.Error("http setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithAuth(ctx, app); err != nil {
		lgr.Error("auth setup failed", "error", err)
		os.Exit(1)
	}

	RegisterRoutes(app)

	go app.srv.Serve(cfg.GetServerAddr())

	WaitExitSignal()

	app.sessions.Stop()
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.config.GetPersistence()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*classtrack.Profile)(nil))
	persistence.RegisterModel((*booking.Room)(nil))
	persistence.RegisterModel((*booking.Schedule)(nil))
	persistence.RegisterModel((*booking.Message)(nil))

	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrations, err := fs.Sub(migrationsFS, "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	client.RegisterFixtures(fixturesFS).AddOptions(persistence.WithTrucateTables())

	if err := client.Seed(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	templates, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(templates), ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	app.srv = srv

	return nil
}

func WithAuth(ctx context.Context, app *App) error {
	provider := local.New(app.config, app.bunDB,
		local.WithLogger(app.GetLogger("auth:idp")))

	if err := provider.Setup(ctx); err != nil {
		return err
	}

	sessions := classtrack.NewSessionManager(provider,
		classtrack.WithManagerLogger(app.GetLogger("auth:session")),
		classtrack.WithManagerNotifier(classtrack.FlashNotifier(app.GetLogger("auth:notice"))))

	if err := sessions.Start(ctx); err != nil {
		return err
	}

	repo := booking.NewRepositoryManager(app.bunDB,
		booking.WithProfiles(provider.Profiles()))

	app.provider = provider
	app.sessions = sessions
	app.booking = booking.NewService(repo,
		booking.WithServiceLogger(app.GetLogger("booking")))

	return nil
}

func RegisterRoutes(app *App) {
	p := app.srv.Router()
	cfg := app.config
	sessions := app.sessions

	classtrack.RegisterAuthRoutes(p.Group("/"),
		classtrack.WithControllerSessions(sessions),
		classtrack.WithControllerConfig(cfg),
		classtrack.WithControllerLogger(app.GetLogger("auth:ctrl")),
	)

	private := classtrack.PrivateRoute(sessions, cfg)
	admin := classtrack.AdminRoute(sessions, cfg)

	p.Get("/", HomeRedirect(app))

	p.Get(classtrack.RouteStudentDashboard, DashboardShow(app), private)
	p.Post("/schedules", ScheduleCreate(app), private)
	p.Post("/schedules/:id/cancel", ScheduleCancel(app), private)

	p.Get(classtrack.RouteChat, ChatShow(app), private)
	p.Post(classtrack.RouteChat, ChatSend(app), private)

	p.Get(classtrack.RouteAdminDashboard, AdminDashboard(app), admin)
	p.Get("/admin/rooms", AdminRooms(app), admin)
	p.Post("/admin/rooms", AdminRoomCreate(app), admin)
	p.Post("/admin/rooms/:id/delete", AdminRoomDelete(app), admin)
	p.Get("/admin/schedules", AdminSchedules(app), admin)
	p.Post("/admin/schedules/:id/confirm", AdminScheduleConfirm(app), admin)
	p.Get("/admin/users", AdminUsers(app), admin)
	p.Post("/admin/users/:id/approve", AdminUserApprove(app), admin)
	p.Post("/admin/users/:id/suspend", AdminUserSuspend(app), admin)

	RegisterAPIRoutes(app, private, admin)
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
