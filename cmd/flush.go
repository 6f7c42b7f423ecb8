package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/skatehive/ytipfs-worker/cmd/common"
)

func flush(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "flush", "load_config", err)
		return nil
	}
	hist, err := openHistory(cfg.HistoryDB)
	if err != nil {
		common.PrintRuntimeErr(ctx, "flush", "open_history", err)
		return cli.NewExitError("", 1)
	}
	defer hist.Close()

	n, err := hist.store().Flush()
	if err != nil {
		common.PrintRuntimeErr(ctx, "flush", "flush_pins", err)
		return cli.NewExitError("", 1)
	}
	fmt.Printf("flushed %d pins from history\n", n)
	return nil
}
