package detect

import (
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		time   string
		marker int
		signal Signal
	}{
		{
			name:   "mpdecimate keep",
			line:   "[Parsed_mpdecimate_0 @ 0x55d1c8] keep pts:2048 pts_time:0.0833333 drop_count:-1",
			ok:     true,
			time:   "0.083333",
			marker: -1,
			signal: RunStart,
		},
		{
			name:   "run end",
			line:   "[Parsed_mpdecimate_0 @ 0x55d1c8] keep pts:98304 pts_time:4 drop_count:-7",
			ok:     true,
			time:   "4.000000",
			marker: -7,
			signal: RunEnd,
		},
		{
			name:   "reversed order and spacing",
			line:   "drop_count: 1 something pts_time: 12.5 trailing",
			ok:     true,
			time:   "12.500000",
			marker: 1,
			signal: SingleDrop,
		},
		{
			name:   "kept frame",
			line:   "pts_time:3.2 drop_count:0",
			ok:     true,
			time:   "3.200000",
			marker: 0,
			signal: NoOp,
		},
		{
			name:   "unrecognized positive marker",
			line:   "pts_time:3.2 drop_count:4",
			ok:     true,
			time:   "3.200000",
			marker: 4,
			signal: NoOp,
		},
		{
			name:   "exponent form below a millisecond",
			line:   "[Parsed_mpdecimate_0 @ 0x1] drop pts:1 pts_time:4.16667e-05 drop_count:-1",
			ok:     true,
			time:   "0.000042",
			marker: -1,
			signal: RunStart,
		},
		{
			name:   "exponent form past a million seconds",
			line:   "[Parsed_mpdecimate_0 @ 0x1] keep pts:2 pts_time:1e+06 drop_count:-3",
			ok:     true,
			time:   "1000000.000000",
			marker: -3,
			signal: RunEnd,
		},
		{name: "missing drop count", line: "pts_time:3.2 keep", ok: false},
		{name: "missing pts time", line: "drop_count:-1", ok: false},
		{name: "unrelated diagnostic", line: "Stream #0:0: Video: h264 (High), yuv420p, 1920x1080", ok: false},
		{name: "empty", line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ParseLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseLine ok=%v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got := ev.Time.StringFixed(6); got != tt.time {
				t.Fatalf("time = %s, want %s", got, tt.time)
			}
			if ev.Marker != tt.marker {
				t.Fatalf("marker = %d, want %d", ev.Marker, tt.marker)
			}
			if ev.Signal != tt.signal {
				t.Fatalf("signal = %s, want %s", ev.Signal, tt.signal)
			}
		})
	}
}

func TestParseMarker(t *testing.T) {
	cases := map[int]Signal{
		-1:  RunStart,
		-2:  RunEnd,
		-40: RunEnd,
		0:   NoOp,
		1:   SingleDrop,
		2:   NoOp,
	}
	for marker, want := range cases {
		if got := ParseMarker(marker); got != want {
			t.Errorf("ParseMarker(%d) = %s, want %s", marker, got, want)
		}
	}
}

func TestReadEventsSkipsNoise(t *testing.T) {
	input := strings.Join([]string{
		"ffmpeg version 7.0 Copyright (c) 2000-2024 the FFmpeg developers",
		"Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mp4':",
		"[Parsed_mpdecimate_0 @ 0x1] keep pts:0 pts_time:0 drop_count:0",
		"[Parsed_mpdecimate_0 @ 0x1] drop pts:512 pts_time:1 drop_count:-1",
		"frame=  240 fps=0.0 q=-0.0 size=N/A time=00:00:10.00",
		"[Parsed_mpdecimate_0 @ 0x1] keep pts:2048 pts_time:4 drop_count:-2",
	}, "\n")
	events, err := ReadEvents(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[1].Signal != RunStart || events[2].Signal != RunEnd {
		t.Fatalf("unexpected signals: %v, %v", events[1].Signal, events[2].Signal)
	}
}

func TestEventsIsLazy(t *testing.T) {
	input := strings.Join([]string{
		"pts_time:1 drop_count:-1",
		"pts_time:2 drop_count:-2",
		"pts_time:3 drop_count:0",
	}, "\n")
	seq, errFn := Events(strings.NewReader(input))
	var seen []Signal
	for ev := range seq {
		seen = append(seen, ev.Signal)
		if len(seen) == 2 {
			break
		}
	}
	if err := errFn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 || seen[0] != RunStart || seen[1] != RunEnd {
		t.Fatalf("unexpected signals: %v", seen)
	}
}
