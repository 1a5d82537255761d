package video

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abema/go-mp4"
	"github.com/dhowden/tag"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/h264"
)

// MP4Info is what ProbeMP4 learns about a file.
type MP4Info struct {
	MajorBrand string
	Timescale  uint32
	Duration   uint64 // in Timescale units
	// Frames holds the size decoded from the first SPS of every avcC box,
	// in track order.
	Frames []h264.Dimensions
}

// Seconds returns the movie duration.
func (i MP4Info) Seconds() float64 {
	if i.Timescale == 0 {
		return 0
	}
	return float64(i.Duration) / float64(i.Timescale)
}

var avcCPath = mp4.BoxPath{
	mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(),
	mp4.BoxTypeStbl(), mp4.BoxTypeStsd(), mp4.BoxTypeAvc1(), mp4.BoxTypeAvcC(),
}

// ProbeMP4 reads the file type, the movie header and the AVC decoder
// configurations of r. SPS decode failures are returned as warnings.
func ProbeMP4(r io.ReadSeeker) (MP4Info, core.Diagnostics, error) {
	var (
		info MP4Info
		diag core.Diagnostics
	)

	ftyps, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeFtyp()})
	if err != nil {
		return info, diag, fmt.Errorf("reading container structure: %w", err)
	}
	if len(ftyps) > 0 {
		if ftyp, ok := ftyps[0].Payload.(*mp4.Ftyp); ok {
			info.MajorBrand = strings.TrimSpace(string(ftyp.MajorBrand[:]))
		}
	}

	mvhds, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return info, diag, fmt.Errorf("reading movie header: %w", err)
	}
	if len(mvhds) > 0 {
		if mvhd, ok := mvhds[0].Payload.(*mp4.Mvhd); ok {
			info.Timescale = mvhd.Timescale
			if mvhd.GetVersion() == 0 {
				info.Duration = uint64(mvhd.DurationV0)
			} else {
				info.Duration = mvhd.DurationV1
			}
		}
	}

	avccs, err := mp4.ExtractBoxWithPayload(r, nil, avcCPath)
	if err != nil {
		return info, diag, fmt.Errorf("reading sample descriptions: %w", err)
	}
	for _, b := range avccs {
		cfg, ok := b.Payload.(*mp4.AVCDecoderConfiguration)
		if !ok || len(cfg.SequenceParameterSets) == 0 {
			continue
		}
		dims, err := h264.ParseNAL(cfg.SequenceParameterSets[0].NALUnit)
		if err != nil {
			diag.WarnAt("sps", int64(b.Info.Offset), "%v", err)
		}
		info.Frames = append(info.Frames, dims)
	}
	return info, diag, nil
}

func (h *Handler) viewMP4(path string, m *core.Metadata) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, diag, err := ProbeMP4(f)
	for _, w := range diag.Warnings {
		h.warn(m, path, w)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	const container = "MP4 Container"
	m.Add(container, "Brand", info.MajorBrand, false)
	if info.Timescale > 0 {
		m.Add(container, "Duration", formatDuration(info.Seconds()), false)
	}
	for i, d := range info.Frames {
		if !d.Valid {
			continue
		}
		cat := fmt.Sprintf("Video Track %d", i+1)
		m.Add(cat, "Codec", "H.264", false)
		m.Add(cat, "Width", fmt.Sprintf("%d", d.Width), false)
		m.Add(cat, "Height", fmt.Sprintf("%d", d.Height), false)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	t, err := tag.ReadFrom(f)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
	case err != nil:
		h.warn(m, path, core.Warning{Stage: "ilst", Message: err.Error(), Offset: -1})
	default:
		addTags(m, t)
	}
	return nil
}

// addTags lists the iTunes metadata read by dhowden/tag.
func addTags(m *core.Metadata, t tag.Metadata) {
	const cat = "iTunes Metadata"
	m.Add(cat, "Title", t.Title(), false)
	m.Add(cat, "Artist", t.Artist(), false)
	m.Add(cat, "Album", t.Album(), false)
	m.Add(cat, "AlbumArtist", t.AlbumArtist(), false)
	m.Add(cat, "Composer", t.Composer(), false)
	m.Add(cat, "Genre", t.Genre(), false)
	m.Add(cat, "Comment", t.Comment(), false)
	if t.Year() != 0 {
		m.Add(cat, "Year", fmt.Sprintf("%d", t.Year()), false)
	}
	if p := t.Picture(); p != nil {
		m.Add(cat, "Picture", fmt.Sprintf("%s, %d bytes", p.MIMEType, len(p.Data)), false)
	}
}
