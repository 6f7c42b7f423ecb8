package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"

	"github.com/skatehive/ytipfs-worker/cmd/common"
	"github.com/skatehive/ytipfs-worker/internal/pinata"
	"github.com/skatehive/ytipfs-worker/internal/worker"
	"github.com/skatehive/ytipfs-worker/pkg/logger"
)

var pinFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "keep, k",
		Usage: "keep the downloaded file after pinning",
	},
}

func pin(ctx *cli.Context) error {
	url := ctx.Args().First()
	if url == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no url provided"))
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "pin", "load_config", err)
		return nil
	}
	if ctx.Bool("keep") {
		cfg.KeepFiles = true
	}
	jwt, err := cfg.ResolvePinataJWT()
	if err != nil {
		common.PrintRuntimeErr(ctx, "pin", "resolve_jwt", err)
		return cli.NewExitError("", 1)
	}

	var hist *historyHandle
	if h, err := openHistory(cfg.HistoryDB); err == nil {
		hist = h
		defer hist.Close()
	}

	p := mpb.New(mpb.WithWidth(64))
	bar := common.InitBar(p, "")

	dl := worker.NewDownloader(nil, logger.NewNopLogger(), cfg)
	dl.OnProgress = func(pr worker.Progress) {
		bar.SetTotal(pr.Total, false)
		bar.SetCurrent(pr.Downloaded)
	}

	svc := worker.NewService(logger.NewNopLogger(), cfg, nil, dl, pinata.NewClient(jwt, "", nil), hist.store(), nil)

	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := svc.Process(sctx, url)
	bar.SetTotal(-1, true)
	p.Wait()
	if err != nil {
		common.PrintRuntimeErr(ctx, "pin", "process", err)
		return cli.NewExitError("", 1)
	}

	fmt.Printf("pinned %s (%s)\ncid: %s\nipfs: %s\ngateway: %s\n",
		resp.Filename,
		humanize.IBytes(uint64(resp.Bytes)),
		resp.CID,
		resp.IpfsURI,
		resp.PinataGateway,
	)
	return nil
}
