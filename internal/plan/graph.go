package plan

import (
	"fmt"
	"strings"

	"stillcut/internal/timeline"
)

// FilterGraph emits one trim/setpts chain per interval (plus an atrim/asetpts
// chain when withAudio is set) and concatenates them into [outv] and [outa].
func FilterGraph(intervals []timeline.Interval, withAudio bool) string {
	var chains []string
	var inputs strings.Builder
	for idx, iv := range intervals {
		bounds := trimBounds(iv)
		chains = append(chains, fmt.Sprintf("[0:v]trim=%s,setpts=PTS-STARTPTS[v%d]", bounds, idx))
		fmt.Fprintf(&inputs, "[v%d]", idx)
		if withAudio {
			chains = append(chains, fmt.Sprintf("[0:a]atrim=%s,asetpts=PTS-STARTPTS[a%d]", bounds, idx))
			fmt.Fprintf(&inputs, "[a%d]", idx)
		}
	}
	audio := 0
	outputs := "[outv]"
	if withAudio {
		audio = 1
		outputs += "[outa]"
	}
	chains = append(chains, fmt.Sprintf("%sconcat=n=%d:v=1:a=%d%s", inputs.String(), len(intervals), audio, outputs))
	return strings.Join(chains, ";")
}

func trimBounds(iv timeline.Interval) string {
	if iv.Open {
		return "start=" + timeline.FormatSeconds(iv.Start)
	}
	return fmt.Sprintf("start=%s:end=%s", timeline.FormatSeconds(iv.Start), timeline.FormatSeconds(iv.End))
}
