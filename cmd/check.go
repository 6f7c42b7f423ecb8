package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/skatehive/ytipfs-worker/cmd/common"
	"github.com/skatehive/ytipfs-worker/internal/config"
	"github.com/skatehive/ytipfs-worker/internal/monitor"
	"github.com/skatehive/ytipfs-worker/internal/notify"
)

// probeTimeout bounds the single GET against the worker status endpoint.
const probeTimeout = 5 * time.Second

var checkFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "cookie-file, f",
		Usage: "path of the netscape cookie store to check",
	},
	cli.IntFlag{
		Name:  "threshold, t",
		Usage: "days before expiry that raise a warning",
	},
	cli.StringFlag{
		Name:  "log-file, o",
		Usage: "append-only report log `PATH`",
	},
	cli.BoolFlag{
		Name:  "no-probe",
		Usage: "skip the worker liveness probe",
	},
	cli.BoolFlag{
		Name:  "no-notify",
		Usage: "skip the discord notification",
	},
}

func check(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "check", "load_config", err)
		return cli.NewExitError("", monitor.ExitCritical)
	}
	if v := ctx.String("cookie-file"); v != "" {
		cfg.CookieFile = v
	}
	if v := ctx.Int("threshold"); v > 0 {
		cfg.AlertThresholdDays = v
	}
	if v := ctx.String("log-file"); v != "" {
		cfg.LogFile = v
	}

	code := runCheck(context.Background(), cfg, os.Stdout, nil,
		ctx.Bool("no-probe"), ctx.Bool("no-notify"))
	if code != monitor.ExitOK {
		return cli.NewExitError("", code)
	}
	return nil
}

// runCheck performs one complete monitor run: report to stdout and the
// append-only log, probe the worker, notify, and reduce everything to
// the scheduler exit code. Probe and notification outcomes are reported
// in the output but never change the code.
func runCheck(ctx context.Context, cfg *config.Config, stdout io.Writer, client *http.Client, skipProbe, skipNotify bool) int {
	out := stdout
	if logf, err := monitor.OpenLog(cfg.LogFile); err != nil {
		fmt.Fprintf(stdout, "warning: %s\n", err.Error())
	} else {
		defer logf.Close()
		out = io.MultiWriter(stdout, logf)
	}

	if cfg.CookieFile == "" {
		fmt.Fprintln(out, "cookie check failed: no cookie store configured (set COOKIE_FILE or --cookie-file)")
		return monitor.ExitCritical
	}

	reporter := &monitor.Reporter{Out: out, ThresholdDays: cfg.AlertThresholdDays}
	summary, err := reporter.Run(cfg.CookieFile)
	code := summary.ExitCode()
	description := monitor.Describe(summary)
	if err != nil {
		code = monitor.ExitCritical
		description = fmt.Sprintf("cookie store unreadable: %s", err.Error())
	}

	if !skipProbe {
		if client == nil {
			client = &http.Client{Timeout: probeTimeout}
		}
		pr := monitor.Probe(client, cfg.StatusURL())
		fmt.Fprintf(out, "probe: %s\n", pr.Detail)
	}

	if !skipNotify {
		notifyCheck(ctx, out, cfg, description, code)
	}
	return code
}

func notifyCheck(ctx context.Context, out io.Writer, cfg *config.Config, description string, code int) {
	notifier := notify.NewNotifier(cfg.DiscordWebhookURL, nil)
	if !notifier.Configured() {
		return
	}
	if !cfg.NotifyAlways && code == monitor.ExitOK {
		return
	}
	d := notifier.Send(ctx, "ytipfs cookie monitor", description,
		notify.SeverityForExit(code), time.Now())
	if d.Attempted && !d.Confirmed {
		fmt.Fprintf(out, "warning: webhook delivery failed: %s\n", d.Err.Error())
	}
}
