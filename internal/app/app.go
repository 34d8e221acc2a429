// Package app assembles the inquirybot runtime from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/inquirybot/core/bootstrap"
	"github.com/m3rciful/inquirybot/core/logger"
	tg "github.com/m3rciful/inquirybot/core/telegram"
	tghelpers "github.com/m3rciful/inquirybot/core/telegram/helpers"
	"github.com/m3rciful/inquirybot/core/telegram/router"
	"github.com/m3rciful/inquirybot/core/telegram/state"
	"github.com/m3rciful/inquirybot/internal/bot"
	"github.com/m3rciful/inquirybot/internal/config"
	"github.com/m3rciful/inquirybot/internal/forumindex"
	"github.com/m3rciful/inquirybot/internal/inquiry"
	"github.com/m3rciful/inquirybot/internal/submission"
	"github.com/m3rciful/inquirybot/internal/web"
)

const shutdownTimeout = 5 * time.Second

// App owns the infrastructure shared by the bot and the HTTP server.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	bot      *tele.Bot
	registry *tg.Registry
	fsm      state.Manager

	wizard   *inquiry.Wizard
	sweeper  *inquiry.Sweeper
	handlers *bot.Handlers
	indexer  *bot.Indexer
	server   *web.Server
}

// New runs the bootstrap pipeline and wires every component.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg.CoreConfig(), Database: cfg.Database})
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, db: res.DB, registry: tg.NewRegistry(), fsm: state.NewMemoryManager()}

	if a.bot, err = tg.NewBot(cfg.CoreConfig()); err != nil {
		_ = a.db.Close()
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		_ = a.db.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	inq := a.cfg.Inquiry
	repo := forumindex.NewRepository(a.db)
	media := bot.NewMediaResolver(a.bot, inq.MediaBaseURL)

	store := inquiry.NewStore(inq.SessionTTL)
	a.sweeper = inquiry.NewSweeper(store, inq.SweepInterval)
	a.wizard = inquiry.NewWizard(inquiry.Config{
		SourceChatID:       inq.ForumChatID,
		RoleID:             inq.StaffRoleChatID,
		StaffChannelID:     inq.StaffChannelID,
		ConfirmationPhrase: inq.ConfirmationPhrase,
		PreviewLength:      inq.PreviewLength,
	}, store, inquiry.Deps{
		Authorizer: bot.NewStaffAuthorizer(a.bot),
		Extractor:  forumindex.NewExtractor(repo, media, inq.ScanWindow),
		Submitter:  submission.NewClient(inq.EndpointURL, inq.SubmitTimeout),
		Notifier:   bot.NewChannelNotifier(a.bot),
	})

	a.handlers = bot.NewHandlers(bot.Config{
		ForumChatID:   inq.ForumChatID,
		ForumUsername: a.forumUsername(ctx),
	}, a.bot, a.wizard, a.fsm)
	if err := a.handlers.Register(a.registry); err != nil {
		return fmt.Errorf("app: register handlers: %w", err)
	}
	a.indexer = bot.NewIndexer(repo, inq.ForumChatID)

	if listen := a.cfg.Health.Listen; listen != "" {
		a.server = web.NewServer(listen, web.NewRouter(web.Deps{
			DB:          repo,
			Sessions:    a.wizard,
			Attachments: repo,
			Files:       media,
		}))
	}
	return nil
}

// forumUsername resolves the public username used by t.me/<username> links.
func (a *App) forumUsername(ctx context.Context) string {
	chat, err := a.bot.ChatByID(a.cfg.Inquiry.ForumChatID)
	if err != nil {
		logger.Warn(ctx, "tg.wire", "forum.lookup.fail",
			slog.Int64("chat_id", a.cfg.Inquiry.ForumChatID),
			slog.String("err", err.Error()),
		)
		return ""
	}
	if !chat.IsForum {
		logger.Warn(ctx, "tg.wire", "forum.not_forum", slog.Int64("chat_id", chat.ID))
	}
	return chat.Username
}

func rejectAdmin(c tele.Context) error {
	return tghelpers.SendText(c, "This command is restricted to the bot admin.")
}

// TelegramRunOptions returns the routes and lifecycle hooks for the bot runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: rejectAdmin,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(a.fsm, router.MessageOptions{
		Observe:     a.indexer.Observe,
		UnknownText: a.handlers.Help,
	})...)

	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.registry,
		Bot:         a.bot,
		Middlewares: tg.DefaultMiddlewares(),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, _ tg.Runtime) error {
	a.sweeper.Start(ctx)
	if a.server != nil {
		if err := a.server.Start(); err != nil {
			a.sweeper.Stop()
			return fmt.Errorf("app: http server: %w", err)
		}
	}
	return nil
}

func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	a.sweeper.Stop()
	if a.server == nil {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(sctx)
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
