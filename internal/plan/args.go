package plan

import (
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"stillcut/internal/timeline"
)

var quietArgs = []string{"-hide_banner", "-nostdin", "-loglevel", "error"}

// SegmentArgs cuts one segment with stream copy. Seeking happens on the input
// side so the cut starts on the keyframe the interval was aligned to.
func SegmentArgs(input string, seg Segment) []string {
	in := ffmpeg.KwArgs{"ss": timeline.FormatClock(seg.Interval.Start)}
	if !seg.Interval.Open {
		in["to"] = timeline.FormatClock(seg.Interval.End)
	}
	return ffmpeg.Input(input, in).
		Output(seg.Path, ffmpeg.KwArgs{
			"map":               "0",
			"c":                 "copy",
			"avoid_negative_ts": "make_zero",
		}).
		GlobalArgs(quietArgs...).
		OverWriteOutput().
		GetArgs()
}

// ConcatArgs joins the segments listed in listPath without re-encoding.
func ConcatArgs(listPath, output string) []string {
	return ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(output, ffmpeg.KwArgs{"map": "0", "c": "copy"}).
		GlobalArgs(quietArgs...).
		OverWriteOutput().
		GetArgs()
}

// ReencodeArgs runs graph over input and encodes the concatenated result.
func ReencodeArgs(input, output, graph string, enc Encoding) []string {
	maps := []string{"[outv]"}
	if enc.HasAudio {
		maps = append(maps, "[outa]")
	}
	out := ffmpeg.KwArgs{
		"filter_complex": graph,
		"map":            maps,
	}
	if codec := strings.TrimSpace(enc.VideoCodec); codec != "" {
		out["c:v"] = codec
	}
	if enc.HasAudio {
		if codec := strings.TrimSpace(enc.AudioCodec); codec != "" {
			out["c:a"] = codec
		}
	}
	if preset := strings.TrimSpace(enc.Preset); preset != "" {
		out["preset"] = preset
	}
	if enc.CRF > 0 {
		out["crf"] = strconv.Itoa(enc.CRF)
	}
	return ffmpeg.Input(input).
		Output(output, out).
		GlobalArgs(quietArgs...).
		OverWriteOutput().
		GetArgs()
}
