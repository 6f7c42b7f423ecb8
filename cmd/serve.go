package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/skatehive/ytipfs-worker/cmd/common"
	"github.com/skatehive/ytipfs-worker/internal/history"
	"github.com/skatehive/ytipfs-worker/internal/monitor"
	"github.com/skatehive/ytipfs-worker/internal/notify"
	"github.com/skatehive/ytipfs-worker/internal/pinata"
	"github.com/skatehive/ytipfs-worker/internal/worker"
	"github.com/skatehive/ytipfs-worker/pkg/logger"
)

var serveFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "port, p",
		Usage: "tcp port the relay listens on",
	},
	cli.StringFlag{
		Name:  "download-dir, d",
		Usage: "directory yt-dlp downloads into",
	},
}

func serve(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "load_config", err)
		return nil
	}
	if p := ctx.Int("port"); p != 0 {
		cfg.Port = p
	}
	if d := ctx.String("download-dir"); d != "" {
		cfg.DownloadDir = d
	}

	jwt, err := cfg.ResolvePinataJWT()
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "resolve_jwt", err)
		return cli.NewExitError("", 1)
	}

	var l logger.Logger = logger.NewStandardLogger(log.New(os.Stdout, "", log.LstdFlags))
	if cfg.LogFile != "" {
		if logf, err := monitor.OpenLog(cfg.LogFile); err != nil {
			l.Warning("file logging disabled: %v", err)
		} else {
			defer logf.Close()
			l = logger.NewMultiLogger(l, logger.NewWriterLogger(logf))
		}
	}
	defer l.Close()

	var hist *history.Store
	if h, err := history.Open(cfg.HistoryDB); err != nil {
		l.Warning("pin history disabled: %v", err)
	} else {
		hist = h
		defer hist.Close()
	}

	dl := worker.NewDownloader(nil, l, cfg)
	pinner := pinata.NewClient(jwt, "", nil)
	board := worker.NewStatusBoard(cfg.CookieFile != "")
	notifier := notify.NewNotifier(cfg.DiscordWebhookURL, nil)
	checker := worker.NewChecker(l, cfg, board, notifier)
	svc := worker.NewService(l, cfg, nil, dl, pinner, hist, board)
	srv := worker.NewServer(l, cfg.Port, svc.Routes())

	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := checker.Run(sctx); err != nil {
			l.Error("cookie checker stopped: %v", err)
		}
	}()

	l.Info("relay worker listening on :%d", cfg.Port)
	if err := srv.Start(sctx); err != nil {
		common.PrintRuntimeErr(ctx, "serve", "listen", err)
		return cli.NewExitError("", 1)
	}
	l.Info("relay worker stopped")
	return nil
}
