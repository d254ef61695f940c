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
		Name:      "qrfs-resize",
		Usage:     "grow or shrink a QRFS volume's logical block count",
		ArgsUsage: "DIRECTORY NEW_BLOCK_COUNT",
		Action:    runResize,
	}

	if err := app.Run(os.Args); err != nil {
		cliutil.Fail(err)
	}
}

func runResize(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: qrfs-resize DIRECTORY NEW_BLOCK_COUNT")
	}
	dir := c.Args().Get(0)

	var newTotal uint64
	if _, err := fmt.Sscanf(c.Args().Get(1), "%d", &newTotal); err != nil {
		return fmt.Errorf("invalid block count %q: %w", c.Args().Get(1), err)
	}

	passphrase, err := cliutil.PromptPassphrase("passphrase: ")
	if err != nil {
		return err
	}

	if err := volume.Resize(dir, passphrase, newTotal); err != nil {
		return err
	}

	fmt.Printf("resized %s to %d blocks\n", dir, newTotal)
	return nil
}
