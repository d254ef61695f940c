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
		Name:      "qrfs-check",
		Usage:     "validate a QRFS volume's on-disk invariants without mutating it",
		ArgsUsage: "DIRECTORY",
		Action:    runCheck,
	}

	if err := app.Run(os.Args); err != nil {
		cliutil.Fail(err)
	}
}

func runCheck(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: qrfs-check DIRECTORY")
	}
	dir := c.Args().Get(0)

	passphrase, err := cliutil.PromptPassphrase("passphrase: ")
	if err != nil {
		return err
	}

	report, err := volume.Check(dir, passphrase)
	if err != nil {
		return err
	}

	fmt.Print(report.String())
	if !report.OK() {
		os.Exit(1)
	}
	return nil
}
