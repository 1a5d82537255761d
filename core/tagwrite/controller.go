package tagwrite

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/lo"

	"github.com/ephod/getID3/core"
)

// ErrNoFormats is returned when a request names no tag format.
var ErrNoFormats = errors.New("no tag formats requested")

// State is the position of a request in the write state machine.
type State int

const (
	StateIdle State = iota
	StateFormatsAllowed
	StateFormatsValidated
	StateRemoving
	StateWritingEachFormat
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFormatsAllowed:
		return "formats-allowed"
	case StateFormatsValidated:
		return "formats-validated"
	case StateRemoving:
		return "removing"
	case StateWritingEachFormat:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Encoder writes or removes one tag format in place.
type Encoder interface {
	Write(path string, data FormatData) (core.Diagnostics, error)
	Remove(path string) (core.Diagnostics, error)
}

// Encoders maps each tag format to its encoder. Removal of ID3v2 looks up
// FormatID3v2.
type Encoders map[Format]Encoder

var mpegFormats = []Format{
	FormatID3v1, FormatID3v22, FormatID3v23, FormatID3v24, FormatAPE, FormatLyrics3,
}

// AllowedFormats returns the tag formats a classified file may carry. An
// empty file accepts the MPEG audio set.
func AllowedFormats(a *core.Analysis) ([]Format, error) {
	if a.Size == 0 {
		return append([]Format(nil), mpegFormats...), nil
	}
	switch a.FileFormat {
	case core.FmtMP3, core.FmtMP2, core.FmtMP1, core.FmtRIFF:
		return append([]Format(nil), mpegFormats...), nil
	case core.FmtMPC:
		return []Format{FormatAPE}, nil
	case core.FmtFLAC:
		return []Format{FormatMetaFLAC}, nil
	case core.FmtReal:
		return []Format{FormatReal}, nil
	case core.FmtOGG:
		switch a.DataFormat {
		case "vorbis":
			return []Format{FormatVorbisComment}, nil
		case "flac":
			return nil, &UnsupportedContainerError{
				FileFormat: string(a.FileFormat), DataFormat: a.DataFormat,
				Reason: "metaflac is not (yet) compatible with OggFLAC files",
			}
		default:
			return nil, &UnsupportedContainerError{
				FileFormat: string(a.FileFormat), DataFormat: a.DataFormat,
				Reason: "metaflac is not (yet) compatible with Ogg files other than OggVorbis",
			}
		}
	}
	return nil, nil
}

// removalTargets lists the allowed formats that were not requested. The
// ID3v2 versions collapse into FormatID3v2, which is only removed when no
// ID3v2 version is being written.
func removalTargets(allowed, requested []Format) []Format {
	isV2 := func(f Format) bool { return f.ID3v2Major() != 0 }
	others := lo.Filter(lo.Without(allowed, requested...), func(f Format, _ int) bool { return !isV2(f) })
	if lo.ContainsBy(allowed, isV2) && !lo.ContainsBy(requested, isV2) {
		others = append(others, FormatID3v2)
	}
	return others
}

// Request describes one write.
type Request struct {
	Path    string
	Formats []Format
	Tags    TagMap
	// Merge asks for the new tags to be merged with the existing ones. It
	// is not supported and fails the request.
	Merge bool
}

// Result reports how far a request got.
type Result struct {
	State       State
	Removed     []Format
	Written     []Format
	Diagnostics core.Diagnostics
}

// Controller validates write and remove requests against the container and
// drives the encoders. It keeps no state between calls.
type Controller struct {
	encoders     Encoders
	encoding     string
	language     string
	removeOthers bool
	rollback     bool
	logger       *slog.Logger
	analyze      func(path string) (*core.Analysis, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithTagEncoding sets the character set Text values are given in.
func WithTagEncoding(charset string) Option {
	return func(c *Controller) { c.encoding = charset }
}

// WithRemoveOtherTags removes every allowed but unrequested format before
// writing.
func WithRemoveOtherTags(remove bool) Option {
	return func(c *Controller) { c.removeOthers = remove }
}

// WithID3v2Language sets the language of ID3v2 COMM and USLT frames.
func WithID3v2Language(lang string) Option {
	return func(c *Controller) { c.language = lang }
}

// WithRollback restores the original file contents when any step fails
// after the file was first modified.
func WithRollback(rollback bool) Option {
	return func(c *Controller) { c.rollback = rollback }
}

// WithLogger sets the logger for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithAnalyzer replaces core.Analyze as the container classifier.
func WithAnalyzer(fn func(path string) (*core.Analysis, error)) Option {
	return func(c *Controller) { c.analyze = fn }
}

// New returns a Controller using the given encoders.
func New(encoders Encoders, opts ...Option) *Controller {
	c := &Controller{
		encoders: encoders,
		encoding: CharsetUTF8,
		language: "eng",
		logger:   core.DiscardLogger(),
		analyze:  core.Analyze,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) settings() Settings {
	return Settings{Encoding: c.encoding, Language: c.language}
}

// transition moves res to state s.
func (c *Controller) transition(res *Result, path string, s State) {
	c.logger.Debug("tag write state", "path", path, "from", res.State.String(), "to", s.String())
	res.State = s
}

func (c *Controller) fail(res *Result, path string, err error) (Result, error) {
	c.transition(res, path, StateFailed)
	c.logger.Warn("tag write failed", "path", path, "error", err)
	res.Diagnostics.Fail(err)
	return *res, err
}

// classify checks that path exists and returns its allowed formats.
func (c *Controller) classify(path string) (*core.Analysis, []Format, error) {
	if path == "" {
		return nil, nil, ErrNoFilename
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	if !st.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%s is not a regular file", path)
	}
	a := &core.Analysis{Path: path, Size: st.Size(), FileFormat: core.FmtUnknown}
	if a.Size > 0 {
		if a, err = c.analyze(path); err != nil {
			return nil, nil, err
		}
	}
	allowed, err := AllowedFormats(a)
	if err != nil {
		return a, nil, err
	}
	return a, allowed, nil
}

func (c *Controller) encoder(f Format, op string) (Encoder, error) {
	enc, ok := c.encoders[f]
	if !ok || enc == nil {
		return nil, &EncoderError{Format: f, Op: op, Err: ErrNoEncoder}
	}
	return enc, nil
}

// Write replaces the tags of req.Path with req.Tags in every requested
// format. Nothing is modified unless every check and every per-format
// derivation succeeds. Formats are then written in order and the first
// failure stops the request.
func (c *Controller) Write(req Request) (Result, error) {
	res := Result{State: StateIdle}
	if req.Merge {
		return c.fail(&res, req.Path, ErrOverwriteUnsupported)
	}
	if len(req.Formats) == 0 {
		return c.fail(&res, req.Path, ErrNoFormats)
	}
	formats := lo.Uniq(req.Formats)
	for _, f := range formats {
		if !writableFormats[f] {
			return c.fail(&res, req.Path, &UnknownTagFormatError{Name: string(f)})
		}
	}

	a, allowed, err := c.classify(req.Path)
	if err != nil {
		return c.fail(&res, req.Path, err)
	}
	c.transition(&res, req.Path, StateFormatsAllowed)
	for _, f := range formats {
		if !lo.Contains(allowed, f) {
			return c.fail(&res, req.Path, &DisallowedFormatForContainerError{
				Format: f, FileFormat: string(a.FileFormat), DataFormat: a.DataFormat,
			})
		}
	}

	tags, err := Normalize(req.Tags)
	if err != nil {
		return c.fail(&res, req.Path, err)
	}
	data := make([]FormatData, 0, len(formats))
	for _, f := range formats {
		d, diag, err := Derive(f, tags, c.settings())
		res.Diagnostics.Merge(diag)
		if err != nil {
			return c.fail(&res, req.Path, err)
		}
		if _, err := c.encoder(f, "write"); err != nil {
			return c.fail(&res, req.Path, err)
		}
		data = append(data, d)
	}

	var remove []Format
	if c.removeOthers {
		remove = removalTargets(allowed, formats)
		for _, f := range remove {
			if _, err := c.encoder(f, "remove"); err != nil {
				return c.fail(&res, req.Path, err)
			}
		}
	}
	c.transition(&res, req.Path, StateFormatsValidated)

	restore, err := c.snapshot(req.Path)
	if err != nil {
		return c.fail(&res, req.Path, err)
	}

	if len(remove) > 0 {
		c.transition(&res, req.Path, StateRemoving)
		if err := c.removeEach(&res, req.Path, remove); err != nil {
			return c.fail(&res, req.Path, restore(err))
		}
	}

	c.transition(&res, req.Path, StateWritingEachFormat)
	for _, d := range data {
		f := d.TagFormat()
		diag, err := c.encoders[f].Write(req.Path, d)
		res.Diagnostics.Merge(diag)
		if err != nil {
			return c.fail(&res, req.Path, restore(&EncoderError{Format: f, Op: "write", Err: err}))
		}
		res.Written = append(res.Written, f)
	}

	c.transition(&res, req.Path, StateDone)
	return res, nil
}

// Remove deletes the given tag formats from path. Any ID3v2 version names
// the whole ID3v2 tag.
func (c *Controller) Remove(path string, formats []Format) (Result, error) {
	res := Result{State: StateIdle}
	if len(formats) == 0 {
		return c.fail(&res, path, ErrNoFormats)
	}
	targets := make([]Format, 0, len(formats))
	for _, f := range formats {
		if f.ID3v2Major() != 0 {
			f = FormatID3v2
		}
		if f != FormatID3v2 && !writableFormats[f] {
			return c.fail(&res, path, &UnknownTagFormatError{Name: string(f)})
		}
		targets = append(targets, f)
	}
	targets = lo.Uniq(targets)

	a, allowed, err := c.classify(path)
	if err != nil {
		return c.fail(&res, path, err)
	}
	c.transition(&res, path, StateFormatsAllowed)
	for _, f := range targets {
		ok := lo.Contains(allowed, f)
		if f == FormatID3v2 {
			ok = lo.ContainsBy(allowed, func(g Format) bool { return g.ID3v2Major() != 0 })
		}
		if !ok {
			return c.fail(&res, path, &DisallowedFormatForContainerError{
				Format: f, FileFormat: string(a.FileFormat), DataFormat: a.DataFormat,
			})
		}
		if _, err := c.encoder(f, "remove"); err != nil {
			return c.fail(&res, path, err)
		}
	}
	c.transition(&res, path, StateFormatsValidated)

	restore, err := c.snapshot(path)
	if err != nil {
		return c.fail(&res, path, err)
	}
	c.transition(&res, path, StateRemoving)
	if err := c.removeEach(&res, path, targets); err != nil {
		return c.fail(&res, path, restore(err))
	}
	c.transition(&res, path, StateDone)
	return res, nil
}

func (c *Controller) removeEach(res *Result, path string, formats []Format) error {
	for _, f := range formats {
		diag, err := c.encoders[f].Remove(path)
		res.Diagnostics.Merge(diag)
		if err != nil {
			return &EncoderError{Format: f, Op: "remove", Err: err}
		}
		res.Removed = append(res.Removed, f)
	}
	return nil
}

// snapshot returns a function that, with rollback enabled, puts the current
// contents of path back and reports the combined error. Without rollback it
// returns the cause unchanged.
func (c *Controller) snapshot(path string) (func(cause error) error, error) {
	if !c.rollback {
		return func(cause error) error { return cause }, nil
	}
	orig, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not snapshot %s: %w", path, err)
	}
	return func(cause error) error {
		if err := core.WriteFileAtomic(path, orig); err != nil {
			return &RollbackError{Cause: cause, Rollback: err}
		}
		c.logger.Debug("restored original file", "path", path)
		return cause
	}, nil
}
