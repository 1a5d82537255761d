// Package h264 extracts frame dimensions from H.264 sequence parameter sets.
package h264

import (
	"fmt"

	"github.com/ephod/getID3/core/bits"
)

// maxRefFramesInPOCCycle bounds num_ref_frames_in_pic_order_cnt_cycle.
const maxRefFramesInPOCCycle = 255

// Dimensions are the displayed frame size. Valid is false when the SPS
// carried profile 0, in which case no size is known.
type Dimensions struct {
	Width  uint32
	Height uint32
	Valid  bool
}

// MalformedBitstreamError is returned when the SPS cannot be decoded into a
// plausible size. The dimensions returned alongside it are zero.
type MalformedBitstreamError struct {
	BitOffset int64
	Reason    string
}

func (e *MalformedBitstreamError) Error() string {
	return fmt.Sprintf("malformed SPS at bit %d: %s", e.BitOffset, e.Reason)
}

// ParseSPS decodes the SPS layout used by FLV AVC sequence headers: two
// leading bytes are skipped, then profile_idc follows. The returned error is
// always a *MalformedBitstreamError and is meant to be surfaced as a warning.
func ParseSPS(payload []byte) (Dimensions, error) {
	r := bits.NewReader(payload)
	r.SkipBits(16)
	profile := r.ReadBits(8)
	if profile == 0 {
		return Dimensions{}, nil
	}

	r.SkipBits(8) // constraint flags
	r.ReadBits(8) // level_idc
	r.ReadUE()    // seq_parameter_set_id
	r.ReadUE()    // log2_max_frame_num_minus4

	switch r.ReadUE() { // pic_order_cnt_type
	case 0:
		r.ReadUE() // log2_max_pic_order_cnt_lsb_minus4
	case 1:
		r.SkipBits(1) // delta_pic_order_always_zero_flag
		r.ReadSE()    // offset_for_non_ref_pic
		r.ReadSE()    // offset_for_top_to_bottom_field
		cycle := r.ReadUE()
		if cycle > maxRefFramesInPOCCycle {
			return Dimensions{}, &MalformedBitstreamError{
				BitOffset: r.Pos(),
				Reason:    fmt.Sprintf("num_ref_frames_in_pic_order_cnt_cycle %d", cycle),
			}
		}
		for range cycle {
			r.ReadSE() // offset_for_ref_frame
		}
	}

	r.ReadUE()    // num_ref_frames
	r.SkipBits(1) // gaps_in_frame_num_value_allowed_flag
	widthMbs := int64(r.ReadUE())
	heightMapUnits := int64(r.ReadUE())

	frameMbsOnly := int64(r.ReadBit())
	if frameMbsOnly == 0 {
		r.SkipBits(1) // mb_adaptive_frame_field_flag
	}
	r.SkipBits(1) // direct_8x8_inference_flag

	var left, right, top, bottom int64
	if r.ReadBit() == 1 { // frame_cropping_flag
		left = int64(r.ReadUE())
		right = int64(r.ReadUE())
		top = int64(r.ReadUE())
		bottom = int64(r.ReadUE())
	}

	if r.Escaped() {
		return Dimensions{}, &MalformedBitstreamError{BitOffset: r.Pos(), Reason: "exp-golomb prefix longer than 31 bits"}
	}

	width := (widthMbs+1)*16 - left*2 - right*2
	height := (2-frameMbsOnly)*(heightMapUnits+1)*16 - top*2 - bottom*2
	if width < 0 || height < 0 || width > 1<<32-1 || height > 1<<32-1 {
		return Dimensions{}, &MalformedBitstreamError{
			BitOffset: r.Pos(),
			Reason:    fmt.Sprintf("cropping yields %dx%d", width, height),
		}
	}
	return Dimensions{Width: uint32(width), Height: uint32(height), Valid: true}, nil
}

// ParseNAL decodes a raw SPS NAL unit as stored in avcC boxes and Annex B
// streams, starting at the NAL header byte.
func ParseNAL(nal []byte) (Dimensions, error) {
	rbsp := Unescape(nal)
	// ParseSPS expects one byte ahead of the NAL header.
	payload := make([]byte, 0, len(rbsp)+1)
	payload = append(payload, 0)
	payload = append(payload, rbsp...)
	return ParseSPS(payload)
}

// Unescape removes emulation prevention bytes (00 00 03 -> 00 00).
func Unescape(nal []byte) []byte {
	out := make([]byte, 0, len(nal))
	zeros := 0
	for _, b := range nal {
		if zeros >= 2 && b == 0x03 {
			zeros = 0
			continue
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}
