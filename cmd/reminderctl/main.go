package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kursadbilgin/expiry-reminder/internal/bootstrap"
	"github.com/kursadbilgin/expiry-reminder/internal/config"
	"github.com/kursadbilgin/expiry-reminder/internal/domain"
	"github.com/kursadbilgin/expiry-reminder/internal/handler"
	"github.com/kursadbilgin/expiry-reminder/internal/observability"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type cliRuntime struct {
	dispatcher       handler.ReminderDispatcher
	auditLog         handler.AuditLogReader
	defaultThreshold int
	close            func() error
}

type runtimeOpener func(ctx context.Context) (*cliRuntime, error)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	open := func(ctx context.Context) (*cliRuntime, error) {
		rt, err := bootstrap.New(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &cliRuntime{
			dispatcher:       rt.Dispatcher,
			auditLog:         rt.AuditLog,
			defaultThreshold: cfg.DefaultThresholdDays,
			close:            rt.Close,
		}, nil
	}

	app := newApp(open, os.Stdout)
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error("reminderctl failed", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}

func newApp(open runtimeOpener, out io.Writer) *cli.App {
	return &cli.App{
		Name:   "reminderctl",
		Usage:  "preview and dispatch membership expiry reminders",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "list memberships expiring within the window without sending",
				Flags: []cli.Flag{daysFlag()},
				Action: func(c *cli.Context) error {
					return withRuntime(c, open, func(rt *cliRuntime) error {
						days, err := thresholdFromFlag(c, rt.defaultThreshold)
						if err != nil {
							return err
						}
						preview, err := rt.dispatcher.Preview(c.Context, days)
						if err != nil {
							return err
						}
						return writeJSON(c.App.Writer, handler.ToPreviewResponse(preview))
					})
				},
			},
			{
				Name:  "dispatch",
				Usage: "send reminders to every member expiring within the window",
				Flags: []cli.Flag{daysFlag()},
				Action: func(c *cli.Context) error {
					return withRuntime(c, open, func(rt *cliRuntime) error {
						days, err := thresholdFromFlag(c, rt.defaultThreshold)
						if err != nil {
							return err
						}
						result, err := rt.dispatcher.RunBatch(c.Context, days)
						if err != nil {
							return err
						}
						return writeJSON(c.App.Writer, handler.ToDispatchResponse(result))
					})
				},
			},
			{
				Name:  "log",
				Usage: "show recent reminder audit entries for a member",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "member", Usage: "member id", Required: true},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum entries"},
				},
				Action: func(c *cli.Context) error {
					return withRuntime(c, open, func(rt *cliRuntime) error {
						memberID := c.String("member")
						entries, err := rt.auditLog.ListByMember(c.Context, memberID, c.Int("limit"))
						if err != nil {
							return err
						}
						return writeJSON(c.App.Writer, handler.ToAuditLogResponse(memberID, entries))
					})
				},
			},
		},
	}
}

func daysFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  "days",
		Usage: "expiry window in days (defaults to DEFAULT_THRESHOLD_DAYS)",
	}
}

func withRuntime(c *cli.Context, open runtimeOpener, fn func(rt *cliRuntime) error) error {
	rt, err := open(c.Context)
	if err != nil {
		return err
	}
	if rt.close != nil {
		defer rt.close() //nolint:errcheck
	}
	return fn(rt)
}

func thresholdFromFlag(c *cli.Context, fallback int) (int, error) {
	if !c.IsSet("days") {
		return fallback, nil
	}
	days := c.Int("days")
	if err := domain.ValidateThreshold(days); err != nil {
		return 0, err
	}
	return days, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
