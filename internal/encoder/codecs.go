package encoder

import (
	"fmt"

	"vidfit/internal/model"
)

// codecSpec maps a codec choice to its ffmpeg software encoder and the
// codec-private flags the two-pass command needs.
type codecSpec struct {
	encoder     string
	profileArgs []string // appended verbatim when non-nil
	rowMT       bool     // encoder supports -row-mt
}

var codecSpecs = map[model.Codec]codecSpec{
	model.CodecH264: {encoder: "libx264", profileArgs: []string{"-profile:v", "main"}},
	model.CodecHEVC: {encoder: "libx265"},
	model.CodecAV1:  {encoder: "libsvtav1", rowMT: true},
	model.CodecVP9:  {encoder: "libvpx-vp9", rowMT: true},
}

// speedArgs returns the encoder speed flags for the given frame height.
// Small frames encode fast enough that a slower preset is affordable and
// pays off visibly; extra quality always takes the slowest practical
// setting.
func speedArgs(codec model.Codec, frameHeight int, extraQuality bool) ([]string, error) {
	hd := frameHeight > 480

	switch codec {
	case model.CodecH264:
		if extraQuality {
			return []string{"-preset", "veryslow"}, nil
		}
		if hd {
			return []string{"-preset", "medium"}, nil
		}
		return []string{"-preset", "slower"}, nil
	case model.CodecHEVC:
		if extraQuality {
			return []string{"-preset", "veryslow"}, nil
		}
		if hd {
			return []string{"-preset", "medium"}, nil
		}
		return []string{"-preset", "slow"}, nil
	case model.CodecAV1:
		if extraQuality {
			return []string{"-preset", "4"}, nil
		}
		if hd {
			return []string{"-preset", "10"}, nil
		}
		return []string{"-preset", "8"}, nil
	case model.CodecVP9:
		if extraQuality {
			return []string{"-deadline", "good", "-cpu-used", "0"}, nil
		}
		if hd {
			return []string{"-deadline", "good", "-cpu-used", "4"}, nil
		}
		return []string{"-deadline", "good", "-cpu-used", "2"}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", codec)
}
