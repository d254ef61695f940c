package main

import (
	"fmt"
	"os"

	"github.com/ajrojasfuentes/qrfs/cliutil"
	"github.com/ajrojasfuentes/qrfs/volume"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "qrfs-format",
		Usage:     "initialize an empty QRFS volume",
		ArgsUsage: "DIRECTORY",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "blocks",
				Value: 100,
				Usage: "total logical block count (must be >= 5)",
			},
		},
		Action: runFormat,
	}

	if err := app.Run(os.Args); err != nil {
		cliutil.Fail(err)
	}
}

func runFormat(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: qrfs-format [--blocks N] DIRECTORY")
	}
	dir := c.Args().Get(0)

	passphrase, err := cliutil.PromptPassphrase("passphrase: ")
	if err != nil {
		return err
	}

	if err := volume.Format(dir, passphrase, c.Uint64("blocks")); err != nil {
		return err
	}

	fmt.Printf("formatted %s with %d blocks\n", dir, c.Uint64("blocks"))
	return nil
}
