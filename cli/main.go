// Command getid3 views media metadata and writes, removes and extracts tags.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/version"
)

func main() {
	appl := &cli.Command{
		Name:    version.Name(),
		Usage:   "Media metadata viewer and tag writer",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print results as JSON",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug records to stderr and mark writable fields",
			},
		},
		Commands: []*cli.Command{
			viewCommand(),
			writeCommand(),
			removeCommand(),
			extractCommand(),
			formatsCommand(),
		},
	}

	if err := appl.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)

		os.Exit(1)
	}
}

func printer(cmd *cli.Command) *core.Printer {
	return core.NewPrinter(cmd.Bool("json"), cmd.Bool("verbose"))
}

func logger(cmd *cli.Command) *slog.Logger {
	return core.NewLogger(os.Stderr, cmd.Bool("verbose"))
}
