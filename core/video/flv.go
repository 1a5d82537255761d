package video

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/amf"
	"github.com/ephod/getID3/core/h264"
	"github.com/ephod/getID3/core/stream"
)

// FLV tag types.
const (
	flvTagAudio  = 8
	flvTagVideo  = 9
	flvTagScript = 18
)

const (
	flvHeaderLen      = 9
	flvTagHeaderLen   = 11
	flvCodecAVC       = 7
	avcSequenceHeader = 0
)

// maxFLVTags bounds the number of tags walked while looking for headers.
const maxFLVTags = 1000

// maxVideoHeader bounds how much of a video tag is read.
const maxVideoHeader = 64 << 10

var errNotFLV = errors.New("not an FLV file")

var flvAudioCodecs = map[uint8]string{
	0:  "Linear PCM, platform endian",
	1:  "ADPCM",
	2:  "mp3",
	3:  "Linear PCM, little endian",
	4:  "Nellymoser 16kHz mono",
	5:  "Nellymoser 8kHz mono",
	6:  "Nellymoser",
	7:  "G.711A-law logarithmic PCM",
	8:  "G.711 mu-law logarithmic PCM",
	10: "AAC",
	11: "Speex",
	14: "mp3 8kHz",
	15: "Device-specific sound",
}

var flvVideoCodecs = map[uint8]string{
	2: "Sorenson H.263",
	3: "Screen video",
	4: "On2 VP6",
	5: "On2 VP6 with alpha channel",
	6: "Screen video v2",
	7: "H.264",
}

var flvSampleRates = [4]int{5512, 11025, 22050, 44100}

// FLVAudio describes the first audio tag.
type FLVAudio struct {
	Codec         uint8
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// FLVInfo is what ProbeFLV learns about a file.
type FLVInfo struct {
	Version  uint8
	HasAudio bool // from the header flags
	HasVideo bool
	// Meta is the argument of the first onMetaData script call, nil when
	// none was found.
	Meta       amf.Value
	Audio      *FLVAudio
	VideoCodec uint8
	// Frame is taken from the SPS of the first AVC sequence header.
	Frame h264.Dimensions
}

type windowed interface {
	SetWindow(start, end int64)
}

// ProbeFLV reads the FLV header of src, narrows the data window of src to
// the tag stream and walks the tags until onMetaData, the first audio tag
// and the first video header have been seen. Decode anomalies are returned
// as warnings; the error is only set when src is not an FLV file or cannot
// be read.
func ProbeFLV(src stream.Source) (FLVInfo, core.Diagnostics, error) {
	var (
		info FLVInfo
		diag core.Diagnostics
	)
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return info, diag, err
	}
	hdr, err := src.Read(flvHeaderLen)
	if err != nil {
		return info, diag, err
	}
	if len(hdr) < flvHeaderLen || string(hdr[:3]) != "FLV" {
		return info, diag, errNotFLV
	}
	info.Version = hdr[3]
	info.HasAudio = hdr[4]&0x04 != 0
	info.HasVideo = hdr[4]&0x01 != 0
	dataOffset := int64(binary.BigEndian.Uint32(hdr[5:9]))

	_, end := src.Window()
	if w, ok := src.(windowed); ok {
		w.SetWindow(dataOffset, end)
	}

	needMeta, needAudio, needVideo := true, info.HasAudio, info.HasVideo
	pos := dataOffset + 4 // PreviousTagSize0
	for range maxFLVTags {
		if (!needMeta && !needAudio && !needVideo) || pos+flvTagHeaderLen > end {
			break
		}
		if _, err := src.Seek(pos, io.SeekStart); err != nil {
			return info, diag, err
		}
		th, err := src.Read(flvTagHeaderLen)
		if err != nil {
			return info, diag, err
		}
		if len(th) < flvTagHeaderLen {
			diag.WarnAt("flv", pos, "tag header truncated")
			break
		}
		size := int64(th[1])<<16 | int64(th[2])<<8 | int64(th[3])
		body := pos + flvTagHeaderLen
		if body+size > end {
			diag.WarnAt("flv", pos, "tag of %d bytes overruns the file", size)
			break
		}

		switch th[0] & 0x1F {
		case flvTagScript:
			if !needMeta {
				break
			}
			data, err := src.Read(int(size))
			if err != nil {
				return info, diag, err
			}
			if meta, ok := onMetaData(data, body, &diag); ok {
				info.Meta = meta
				needMeta = false
			}
		case flvTagAudio:
			if !needAudio || size == 0 {
				break
			}
			b, err := src.Read(1)
			if err != nil {
				return info, diag, err
			}
			if len(b) == 0 {
				break
			}
			info.Audio = &FLVAudio{
				Codec:         b[0] >> 4,
				SampleRate:    flvSampleRates[(b[0]>>2)&0x03],
				BitsPerSample: 8 * (1 + int(b[0]>>1&0x01)),
				Channels:      1 + int(b[0]&0x01),
			}
			needAudio = false
		case flvTagVideo:
			if !needVideo || size == 0 {
				break
			}
			data, err := src.Read(int(min(size, maxVideoHeader)))
			if err != nil {
				return info, diag, err
			}
			if len(data) == 0 {
				break
			}
			info.VideoCodec = data[0] & 0x0F
			switch {
			case info.VideoCodec != flvCodecAVC:
				needVideo = false
			case len(data) > 5 && data[1] == avcSequenceHeader:
				info.Frame = avcFrame(data[5:], body+5, &diag)
				needVideo = false
			}
		}
		pos = body + size + 4
	}
	return info, diag, nil
}

// onMetaData decodes a script tag and returns the argument of an onMetaData
// call.
func onMetaData(data []byte, offset int64, diag *core.Diagnostics) (amf.Value, bool) {
	values, errs := amf.DecodeAll(data)
	for _, err := range errs {
		diag.WarnAt("amf", offset, "%v", err)
	}
	if len(values) < 2 {
		return nil, false
	}
	if name, ok := values[0].(amf.String); !ok || name != "onMetaData" {
		return nil, false
	}
	return values[1], true
}

// avcFrame reads the first SPS of an AVCDecoderConfigurationRecord.
func avcFrame(rec []byte, offset int64, diag *core.Diagnostics) h264.Dimensions {
	if len(rec) < 8 {
		diag.WarnAt("flv", offset, "AVC decoder configuration truncated")
		return h264.Dimensions{}
	}
	if rec[5]&0x1F == 0 {
		return h264.Dimensions{}
	}
	n := int(binary.BigEndian.Uint16(rec[6:8]))
	if 8+n > len(rec) {
		diag.WarnAt("flv", offset, "SPS of %d bytes overruns the AVC decoder configuration", n)
		return h264.Dimensions{}
	}
	dims, err := h264.ParseNAL(rec[8 : 8+n])
	if err != nil {
		diag.WarnAt("sps", offset+8, "%v", err)
	}
	return dims
}

func (h *Handler) viewFLV(path string, m *core.Metadata) error {
	src, err := stream.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, diag, err := ProbeFLV(src)
	for _, w := range diag.Warnings {
		h.warn(m, path, w)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	start, _ := src.Window()
	h.log.Debug("flv probed", "path", path, "data_offset", start, "meta", info.Meta != nil)

	const header = "FLV Header"
	m.Add(header, "Version", fmt.Sprintf("%d", info.Version), false)
	m.Add(header, "HasVideo", fmt.Sprintf("%v", info.HasVideo), false)
	m.Add(header, "HasAudio", fmt.Sprintf("%v", info.HasAudio), false)
	m.Add(header, "DataOffset", fmt.Sprintf("%d", start), false)

	if a := info.Audio; a != nil {
		m.Add("FLV Audio", "Codec", codecName(flvAudioCodecs, a.Codec), false)
		m.Add("FLV Audio", "SampleRate", fmt.Sprintf("%d Hz", a.SampleRate), false)
		m.Add("FLV Audio", "BitsPerSample", fmt.Sprintf("%d", a.BitsPerSample), false)
		m.Add("FLV Audio", "Channels", fmt.Sprintf("%d", a.Channels), false)
	}
	if info.VideoCodec != 0 {
		m.Add("FLV Video", "Codec", codecName(flvVideoCodecs, info.VideoCodec), false)
	}
	if info.Frame.Valid {
		m.Add("FLV Video", "Width", fmt.Sprintf("%d", info.Frame.Width), false)
		m.Add("FLV Video", "Height", fmt.Sprintf("%d", info.Frame.Height), false)
	}

	switch meta := info.Meta.(type) {
	case amf.MixedArray:
		for _, e := range meta.Entries {
			addMeta(m, e.Key.String(), e.Value)
		}
	case amf.Object:
		for _, p := range meta.Props {
			addMeta(m, p.Key, p.Value)
		}
	}
	return nil
}

func addMeta(m *core.Metadata, key string, v amf.Value) {
	if n, ok := v.(amf.Number); ok && key == "duration" {
		m.Add("FLV Metadata", key, formatDuration(float64(n)), false)
		return
	}
	m.Add("FLV Metadata", key, amf.Format(v), false)
}

func codecName(names map[uint8]string, id uint8) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("unknown (%d)", id)
}
