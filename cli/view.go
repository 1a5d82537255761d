package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/audio"
	"github.com/ephod/getID3/core/video"
)

var errNoFiles = errors.New("expected at least one file")

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Show the metadata of one or more files",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   4,
				Usage:   "number of files read concurrently",
			},
		},
		Action: runView,
	}
}

// viewer returns the handler for a detected format.
func viewer(id core.FormatID, log *slog.Logger) (core.Viewer, error) {
	switch core.MediaTypeFor(id) {
	case "audio":
		return audio.New(id), nil
	case "video":
		return video.New(id, video.WithLogger(log)), nil
	}
	return nil, fmt.Errorf("unsupported format %q", id)
}

func viewFile(path string, log *slog.Logger) (*core.Metadata, error) {
	id, err := core.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	v, err := viewer(id, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v.View(path)
}

func runView(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errNoFiles
	}
	log := logger(cmd)

	type result struct {
		meta *core.Metadata
		err  error
	}
	results := make([]result, len(paths))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(max(int(cmd.Int("jobs")), 1))
	for i, path := range paths {
		g.Go(func() error {
			m, err := viewFile(path, log)
			results[i] = result{meta: m, err: err}
			return nil
		})
	}
	_ = g.Wait()

	p := printer(cmd)
	var errs []error
	for _, r := range results {
		if r.meta != nil {
			p.PrintMetadata(r.meta)
		}
		if r.err != nil {
			log.Debug("view failed", "error", r.err)
			errs = append(errs, r.err)
		}
	}
	return errors.Join(errs...)
}

func formatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "formats",
		Usage: "List the supported containers and their writable tag formats",
		Action: func(_ context.Context, cmd *cli.Command) error {
			p := printer(cmd)
			for _, id := range core.FormatIDs() {
				v, err := viewer(id, core.DiscardLogger())
				if err != nil {
					continue
				}
				info := v.Info()
				if info.Name == "" {
					continue
				}
				line := fmt.Sprintf("%-14s %-6s %v", info.Name, info.MediaType, info.Extensions)
				if len(info.TagFormats) > 0 {
					line += fmt.Sprintf("  tags: %v", info.TagFormats)
				}
				p.PrintInfo(line)
			}
			return nil
		},
	}
}
