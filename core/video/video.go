// Package video probes video containers for their stream layout: FLV
// (header flags, onMetaData, AVC frame size) and MP4/MOV (movie header,
// avcC frame size, iTunes tags).
package video

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ephod/getID3/core"
)

// Handler implements core.Viewer for video formats.
type Handler struct {
	format core.FormatID
	log    *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger decode anomalies are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// New returns a video Handler for the given format.
func New(format core.FormatID, opts ...Option) *Handler {
	h := &Handler{format: format, log: core.DiscardLogger()}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) Info() core.FormatInfo {
	return formatInfo[h.format]
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtMP4: {
		Name:       "MP4",
		Extensions: []string{".mp4", ".m4v"},
		MediaType:  "video",
		MIMETypes:  []string{"video/mp4"},
		Notes:      "ISO Base Media File Format. Duration from mvhd, frame size from the avcC SPS.",
	},
	core.FmtMOV: {
		Name:       "QuickTime MOV",
		Extensions: []string{".mov", ".qt"},
		MediaType:  "video",
		MIMETypes:  []string{"video/quicktime"},
		Notes:      "QuickTime atoms, read like MP4.",
	},
	core.FmtFLV: {
		Name:       "FLV",
		Extensions: []string{".flv"},
		MediaType:  "video",
		MIMETypes:  []string{"video/x-flv"},
		Notes:      "Flash Video. onMetaData is decoded as AMF0; frame size from the AVC sequence header.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// View
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path, Format: formatInfo[h.format].Name}

	switch h.format {
	case core.FmtMP4, core.FmtMOV:
		return m, h.viewMP4(path, m)
	case core.FmtFLV:
		return m, h.viewFLV(path, m)
	default:
		m.Format = strings.ToUpper(string(h.format))
		return m, fmt.Errorf("unsupported video format: %s", h.format)
	}
}

// warn records w on m and logs it.
func (h *Handler) warn(m *core.Metadata, path string, w core.Warning) {
	m.Warnings = append(m.Warnings, w)
	h.log.Warn(w.Message, "path", path, "stage", w.Stage, "offset", w.Offset)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func formatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %06.3fs", h, m, s)
	}
	return fmt.Sprintf("%dm %06.3fs", m, s)
}
