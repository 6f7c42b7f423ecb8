package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"github.com/skatehive/ytipfs-worker/cmd/common"
	"github.com/skatehive/ytipfs-worker/internal/history"
)

// historyHandle wraps the pin history store so commands can treat a
// failed open as "history disabled" without nil checks at every use.
type historyHandle struct {
	s *history.Store
}

func openHistory(path string) (*historyHandle, error) {
	s, err := history.Open(path)
	if err != nil {
		return nil, err
	}
	return &historyHandle{s: s}, nil
}

func (h *historyHandle) store() *history.Store {
	if h == nil {
		return nil
	}
	return h.s
}

func (h *historyHandle) Close() error {
	if h == nil || h.s == nil {
		return nil
	}
	return h.s.Close()
}

func list(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "load_config", err)
		return nil
	}
	hist, err := openHistory(cfg.HistoryDB)
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "open_history", err)
		return cli.NewExitError("", 1)
	}
	defer hist.Close()

	pins, err := hist.store().List()
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "list_pins", err)
		return cli.NewExitError("", 1)
	}
	if len(pins) == 0 {
		fmt.Println("no pins recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "CID\tFILE\tSIZE\tPINNED\tSOURCE")
	for _, p := range pins {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.CID,
			p.Filename,
			humanize.IBytes(uint64(p.Bytes)),
			humanize.Time(p.PinnedAt),
			p.SourceURL,
		)
	}
	return w.Flush()
}
