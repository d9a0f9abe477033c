package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ailab/linkguard/internal/moderation"
	"github.com/ailab/linkguard/internal/setup"
	"github.com/ailab/linkguard/internal/setup/config"
	"github.com/ailab/linkguard/internal/whatsapp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "bot",
		Usage: "Delete links from WhatsApp groups and remove repeat offenders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-dir",
				Value: BotLogDir,
				Usage: "Directory for log sessions",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runBot(ctx, c.String("log-dir"))
		},
		Commands: []*cli.Command{
			{
				Name:  "logout",
				Usage: "Log the paired device out and delete the stored session",
				Action: func(ctx context.Context, c *cli.Command) error {
					return logout(ctx, c.String("log-dir"))
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, os.Args)
}

// runBot serves moderation until interrupted or logged out.
func runBot(ctx context.Context, logDir string) error {
	app, err := setup.InitializeApp(ctx, logDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	opts, err := moderationOptions(&app.Config.Bot.Moderation)
	if err != nil {
		return err
	}

	bot, err := newBot(ctx, app, opts)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(ctx)
	})

	if app.Health != nil {
		g.Go(func() error {
			return app.Health.Run(ctx)
		})
	}

	app.Logger.Info("Bot started, waiting for interrupt signal to shut down")

	if err := g.Wait(); err != nil {
		if errors.Is(err, whatsapp.ErrLoggedOut) {
			app.Logger.Warn("Session ended by logout, restart to pair again")
		}

		return err
	}

	app.Logger.Info("Bot stopped")

	return nil
}

// logout removes the paired device from the account.
func logout(ctx context.Context, logDir string) error {
	app, err := setup.InitializeApp(ctx, logDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	bot, err := newBot(ctx, app, moderation.Options{})
	if err != nil {
		return err
	}

	if err := bot.Logout(ctx); err != nil {
		return err
	}

	fmt.Println("Logged out, the next start will ask for a new QR scan.")

	return nil
}

// newBot opens the session store and wires the moderator to the protocol client.
func newBot(ctx context.Context, app *setup.App, opts moderation.Options) (*whatsapp.Bot, error) {
	container, err := whatsapp.OpenStore(ctx, &app.Config.Bot.Session, app.ClientLogger)
	if err != nil {
		return nil, err
	}

	client, err := whatsapp.NewClient(ctx, container, app.ClientLogger, app.Logger)
	if err != nil {
		return nil, err
	}

	moderator := moderation.NewModerator(client, app.Recorder, app.Metrics, opts, app.Logger)

	app.Logger.Info("Moderation configured",
		zap.Int("maxViolations", opts.MaxViolations),
		zap.String("violationScope", opts.Scope.String()),
		zap.Duration("adminCacheTTL", opts.AdminCacheTTL))

	return whatsapp.NewBot(client, moderator, &app.Config.Bot.Reconnect, os.Stdout, app.Logger), nil
}

// moderationOptions converts the moderation config section.
func moderationOptions(cfg *config.Moderation) (moderation.Options, error) {
	scope, err := moderation.ParseScope(cfg.ViolationScope)
	if err != nil {
		return moderation.Options{}, err
	}

	return moderation.Options{
		MaxViolations:  cfg.MaxViolations,
		Scope:          scope,
		AdminCacheSize: cfg.AdminCacheSize,
		AdminCacheTTL:  time.Duration(cfg.AdminCacheTTL) * time.Second,
		IntroMessage:   cfg.IntroMessage,
		GroupSuffix:    moderation.DefaultGroupSuffix,
	}, nil
}
