package h264

import (
	"bytes"
	"errors"
	"testing"
)

type bitWriter struct {
	buf   []byte
	nbits int
}

func (w *bitWriter) bits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.nbits%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 == 1 {
			w.buf[len(w.buf)-1] |= 0x80 >> uint(w.nbits%8)
		}
		w.nbits++
	}
}

func (w *bitWriter) ue(v uint32) {
	x := uint64(v) + 1
	n := 0
	for (x >> uint(n+1)) != 0 {
		n++
	}
	w.bits(0, n)
	w.bits(x, n+1)
}

func (w *bitWriter) se(v int32) {
	if v > 0 {
		w.ue(uint32(v)*2 - 1)
	} else {
		w.ue(uint32(-v) * 2)
	}
}

type spsFields struct {
	profile        uint64
	pocType        uint32
	widthMbs       uint32
	heightMapUnits uint32
	frameMbsOnly   bool
	crop           [4]uint32
}

// build lays out an SPS the way an FLV AVC sequence header presents it:
// two lead bytes, then profile_idc.
func (f spsFields) build() []byte {
	w := &bitWriter{}
	w.bits(0x01, 8) // lead byte
	w.bits(0x67, 8) // NAL header
	w.bits(f.profile, 8)
	w.bits(0, 8)  // constraint flags
	w.bits(31, 8) // level_idc
	w.ue(0)       // seq_parameter_set_id
	w.ue(0)       // log2_max_frame_num_minus4
	w.ue(f.pocType)
	switch f.pocType {
	case 0:
		w.ue(2)
	case 1:
		w.bits(0, 1)
		w.se(-3)
		w.se(2)
		w.ue(3)
		w.se(1)
		w.se(-1)
		w.se(4)
	}
	w.ue(4) // num_ref_frames
	w.bits(0, 1)
	w.ue(f.widthMbs)
	w.ue(f.heightMapUnits)
	if f.frameMbsOnly {
		w.bits(1, 1)
	} else {
		w.bits(0, 1)
		w.bits(1, 1)
	}
	w.bits(1, 1) // direct_8x8_inference_flag
	if f.crop != [4]uint32{} {
		w.bits(1, 1)
		for _, c := range f.crop {
			w.ue(c)
		}
	} else {
		w.bits(0, 1)
	}
	w.bits(0, 1) // vui_parameters_present_flag
	return w.buf
}

func TestParseSPS(t *testing.T) {
	tests := []struct {
		name   string
		fields spsFields
		width  uint32
		height uint32
	}{
		{
			name:   "720p baseline",
			fields: spsFields{profile: 66, widthMbs: 79, heightMapUnits: 44, frameMbsOnly: true},
			width:  1280, height: 720,
		},
		{
			name:   "1080p cropped",
			fields: spsFields{profile: 100, widthMbs: 119, heightMapUnits: 67, frameMbsOnly: true, crop: [4]uint32{0, 0, 0, 4}},
			width:  1920, height: 1080,
		},
		{
			name:   "interlaced poc type 1",
			fields: spsFields{profile: 77, pocType: 1, widthMbs: 44, heightMapUnits: 17, frameMbsOnly: false},
			width:  720, height: 576,
		},
		{
			name:   "poc type 2 left/right crop",
			fields: spsFields{profile: 66, pocType: 2, widthMbs: 21, heightMapUnits: 17, frameMbsOnly: true, crop: [4]uint32{2, 2, 0, 0}},
			width:  344, height: 288,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dims, err := ParseSPS(tt.fields.build())
			if err != nil {
				t.Fatal(err)
			}
			if !dims.Valid || dims.Width != tt.width || dims.Height != tt.height {
				t.Errorf("got %+v, want %dx%d", dims, tt.width, tt.height)
			}
		})
	}
}

func TestParseSPSProfileZero(t *testing.T) {
	dims, err := ParseSPS([]byte{0x01, 0x67, 0x00, 0xFF, 0xFF, 0xFF})
	if err != nil {
		t.Fatal(err)
	}
	if dims.Valid || dims.Width != 0 || dims.Height != 0 {
		t.Errorf("got %+v, want unset dimensions", dims)
	}
}

func TestParseSPSEscape(t *testing.T) {
	payload := append([]byte{0x01, 0x67, 66, 0, 31}, make([]byte, 16)...)
	dims, err := ParseSPS(payload)
	var mbe *MalformedBitstreamError
	if !errors.As(err, &mbe) {
		t.Fatalf("error = %v, want MalformedBitstreamError", err)
	}
	if dims != (Dimensions{}) {
		t.Errorf("got %+v, want zero dimensions", dims)
	}
}

func TestParseNAL(t *testing.T) {
	payload := spsFields{profile: 66, widthMbs: 79, heightMapUnits: 44, frameMbsOnly: true}.build()
	dims, err := ParseNAL(payload[1:])
	if err != nil {
		t.Fatal(err)
	}
	if dims.Width != 1280 || dims.Height != 720 {
		t.Errorf("got %+v, want 1280x720", dims)
	}
}

func TestUnescape(t *testing.T) {
	in := []byte{0x67, 0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x00, 0x03}
	want := []byte{0x67, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03}
	if got := Unescape(in); !bytes.Equal(got, want) {
		t.Errorf("Unescape = % x, want % x", got, want)
	}
}
