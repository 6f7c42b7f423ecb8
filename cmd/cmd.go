package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/skatehive/ytipfs-worker/cmd/common"
	"github.com/skatehive/ytipfs-worker/internal/config"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var configFlag = cli.StringFlag{
	Name:  "config, C",
	Usage: "path of an optional yaml configuration file",
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.GlobalString("config")
	if path == "" {
		path = ctx.String("config")
	}
	return config.Load(path)
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "ytipfs",
		HelpName:              "ytipfs",
		Usage:                 "A yt-dlp to IPFS relay with cookie expiry monitoring.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "ytipfs <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:                   "check",
				Aliases:                []string{"c"},
				Usage:                  "run a one-shot cookie expiry check",
				Action:                 check,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            CheckDescription,
				UseShortOptionHandling: true,
				Flags:                  checkFlags,
			},
			{
				Name:               "serve",
				Aliases:            []string{"s"},
				Usage:              "run the download-and-pin relay worker",
				Action:             serve,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ServeDescription,
				Flags:              serveFlags,
			},
			{
				Name:                   "pin",
				Aliases:                []string{"p"},
				Usage:                  "download one url and pin it to ipfs",
				Action:                 pin,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            PinDescription,
				UseShortOptionHandling: true,
				Flags:                  pinFlags,
			},
			{
				Name:               "auth",
				Usage:              "store the pinata jwt in the os keyring",
				Action:             auth,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        AuthDescription,
				Flags:              authFlags,
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "display pin history",
				Action:             list,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ListDescription,
			},
			{
				Name:               "flush",
				Usage:              "flush the pin history",
				Action:             flush,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        FlushDescription,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of ytipfs",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:                 check,
		Flags:                  append([]cli.Flag{configFlag}, checkFlags...),
		UseShortOptionHandling: true,
		HideHelp:               true,
		HideVersion:            true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
