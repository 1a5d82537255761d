package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/audio"
	"github.com/ephod/getID3/core/tagwrite"
)

var (
	errOneFile  = errors.New("expected exactly one argument: file path")
	errNoFormat = errors.New("at least one --format is required")
)

func writeCommand() *cli.Command {
	return &cli.Command{
		Name:      "write",
		Usage:     "Replace the tags of a file in one or more tag formats",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "tag format to write: id3v1, id3v2.3, id3v2.4, ape, vorbiscomment, metaflac, real",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "KEY=VALUE, repeat a key for several values",
			},
			&cli.StringFlag{
				Name:  "picture",
				Usage: "image file attached as front cover",
			},
			&cli.StringFlag{
				Name:  "picture-description",
				Usage: "description of the attached picture",
			},
			&cli.BoolFlag{
				Name:  "remove-others",
				Usage: "remove tag formats that were not requested",
			},
			&cli.StringFlag{
				Name:  "encoding",
				Value: tagwrite.CharsetUTF8,
				Usage: "character set of the tag values",
			},
			&cli.StringFlag{
				Name:  "language",
				Value: "eng",
				Usage: "ISO 639-2 language of ID3v2 comment and lyrics frames",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "restore the file when a format fails to write",
			},
		},
		Action: runWrite,
	}
}

func runWrite(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("%w: got %d", errOneFile, cmd.NArg())
	}
	path := cmd.Args().First()

	var formats []tagwrite.Format
	for _, name := range cmd.StringSlice("format") {
		f, err := tagwrite.ParseFormat(name)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return errNoFormat
	}

	tags, err := tagsFromFlags(cmd)
	if err != nil {
		return err
	}

	c := tagwrite.New(audio.Encoders(),
		tagwrite.WithTagEncoding(cmd.String("encoding")),
		tagwrite.WithRemoveOtherTags(cmd.Bool("remove-others")),
		tagwrite.WithID3v2Language(cmd.String("language")),
		tagwrite.WithRollback(cmd.Bool("rollback")),
		tagwrite.WithLogger(logger(cmd)),
	)
	res, err := c.Write(tagwrite.Request{Path: path, Formats: formats, Tags: tags})
	report(printer(cmd), res, "wrote", res.Written)
	return err
}

func tagsFromFlags(cmd *cli.Command) (tagwrite.TagMap, error) {
	tags := tagwrite.NewTagMap()
	for _, kv := range cmd.StringSlice("tag") {
		k, v, ok := core.ParseKV(kv)
		if !ok {
			return tags, fmt.Errorf("invalid --tag %q, expected KEY=VALUE", kv)
		}
		tags.Add(k, tagwrite.Text(v))
	}

	if pic := cmd.String("picture"); pic != "" {
		data, err := os.ReadFile(pic)
		if err != nil {
			return tags, err
		}
		tags.Add(tagwrite.FieldAttachedPicture, tagwrite.Picture{
			Data:        data,
			PictureType: 3,
			Description: cmd.String("picture-description"),
			MIME:        imageMIME(pic, data),
		})
	}
	return tags, nil
}

// imageMIME guesses the MIME type from the extension, then from the content.
func imageMIME(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(t, "image/") {
		return t
	}
	return http.DetectContentType(data)
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove tags of the given formats from a file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "tag format to remove: id3v1, id3v2, ape, lyrics3, vorbiscomment, metaflac, real",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errOneFile, cmd.NArg())
			}
			var formats []tagwrite.Format
			for _, name := range cmd.StringSlice("format") {
				f, err := tagwrite.ParseRemovalFormat(name)
				if err != nil {
					return err
				}
				formats = append(formats, f)
			}
			if len(formats) == 0 {
				return errNoFormat
			}
			c := tagwrite.New(audio.Encoders(), tagwrite.WithLogger(logger(cmd)))
			res, err := c.Remove(cmd.Args().First(), formats)
			report(printer(cmd), res, "removed", res.Removed)
			return err
		},
	}
}

func report(p *core.Printer, res tagwrite.Result, verb string, formats []tagwrite.Format) {
	p.PrintDiagnostics(res.Diagnostics)
	if res.State == tagwrite.StateDone && len(formats) > 0 {
		p.PrintSuccess(verb + " " + tagwrite.JoinFormats(formats))
	}
}
