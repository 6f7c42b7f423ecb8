package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/skatehive/ytipfs-worker/cmd/common"
	"github.com/skatehive/ytipfs-worker/internal/config"
)

var authFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "token, t",
		Usage: "the pinata jwt to store",
	},
}

func auth(ctx *cli.Context) error {
	token := ctx.String("token")
	if token == "" {
		token = ctx.Args().First()
	}
	if token == "" {
		fmt.Print("Pinata JWT: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			common.PrintRuntimeErr(ctx, "auth", "read_token", err)
			return cli.NewExitError("", 1)
		}
		token = strings.TrimSpace(line)
	}

	if err := config.StorePinataJWT(token); err != nil {
		common.PrintRuntimeErr(ctx, "auth", "store_token", err)
		return cli.NewExitError("", 1)
	}
	fmt.Println("pinata jwt stored in the os keyring")
	return nil
}
