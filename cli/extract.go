package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/audio"
	"github.com/ephod/getID3/core/stream"
)

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract the pictures embedded in a FLAC file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "write pictures into this directory instead of listing them",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errOneFile, cmd.NArg())
			}
			path := cmd.Args().First()

			id, err := core.DetectFormat(path)
			if err != nil {
				return err
			}
			if id != core.FmtFLAC {
				return fmt.Errorf("%s: picture extraction needs a FLAC file, got %s", path, id)
			}

			ex := stream.NewExtractor(stream.ExtractInline, "")
			if dir := cmd.String("dir"); dir != "" {
				ex = stream.NewExtractor(stream.ExtractToDir, dir)
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

			atts, diag, err := audio.ExtractFLACPictures(path, base, ex)
			p := printer(cmd)
			p.PrintDiagnostics(diag)
			if err != nil {
				return err
			}
			for i, a := range atts {
				switch {
				case a.Path != "":
					p.PrintSuccess(a.Path)
				case a.Data != nil:
					p.PrintInfo(fmt.Sprintf("picture %d: %d bytes", i, len(a.Data)))
				}
			}
			if len(atts) == 0 {
				p.PrintInfo("no pictures found")
			}
			return nil
		},
	}
}
