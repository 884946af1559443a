package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"stillcut/internal/config"
	"stillcut/internal/services"
	"stillcut/internal/timeline"
	"stillcut/internal/trim"
)

type intervalJSON struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
	Open  bool   `json:"open"`
}

type detectJSON struct {
	Input         string         `json:"input"`
	Source        string         `json:"source"`
	MinDrop       string         `json:"min_drop"`
	MinKeep       string         `json:"min_keep"`
	Duration      string         `json:"duration,omitempty"`
	CutRuns       int            `json:"cut_runs"`
	WholeInput    bool           `json:"whole_input"`
	Intervals     []intervalJSON `json:"intervals"`
	Aligned       []intervalJSON `json:"aligned,omitempty"`
	KeyframeCount int            `json:"keyframe_count,omitempty"`
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var flags analysisFlags
	var align bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "detect INPUT",
		Short: "Print the spans of INPUT that trim would keep",
		Args:  inputArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			limits, err := flags.thresholds()
			if err != nil {
				return err
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", services.ErrValidation, err)
			}
			req := trim.Request{
				Input:         input,
				MinDrop:       limits.minDrop,
				MinKeep:       limits.minKeep,
				FromLog:       flags.fromLog,
				KeyframesFile: flags.keyframesFile,
				Align:         align || flags.keyframesFile != "",
				NoCache:       flags.noCache,
			}
			return ctx.withService(cmd, flags.noCache, func(svc *trim.Service) error {
				det, err := svc.Detect(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, detectPayload(det))
				}
				printDetection(cmd.OutOrStdout(), det)
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&align, "align", false, "Snap intervals to keyframes as copy mode would")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func detectPayload(det *trim.Detection) detectJSON {
	payload := detectJSON{
		Input:         det.Input,
		Source:        det.Source,
		MinDrop:       timeline.FormatSeconds(det.Settings.MinDrop),
		MinKeep:       timeline.FormatSeconds(det.Settings.MinKeep),
		CutRuns:       det.Stats.CutRuns,
		WholeInput:    trim.WholeInput(det.Final()),
		Intervals:     intervalsJSON(det.Intervals),
		KeyframeCount: det.Keyframes,
	}
	if det.Duration.IsPositive() {
		payload.Duration = timeline.FormatSeconds(det.Duration)
	}
	if det.Aligned != nil {
		payload.Aligned = intervalsJSON(det.Aligned)
	}
	return payload
}

func intervalsJSON(intervals []timeline.Interval) []intervalJSON {
	out := make([]intervalJSON, 0, len(intervals))
	for _, iv := range intervals {
		item := intervalJSON{Start: timeline.FormatSeconds(iv.Start), Open: iv.Open}
		if !iv.Open {
			item.End = timeline.FormatSeconds(iv.End)
		}
		out = append(out, item)
	}
	return out
}

func printDetection(out io.Writer, det *trim.Detection) {
	intervals := det.Final()
	if len(intervals) == 0 {
		fmt.Fprintln(out, "Nothing to keep: every span is near-static")
		return
	}

	rows := make([][]string, 0, len(intervals))
	for i, iv := range intervals {
		length := "to end"
		if !iv.Open || det.Duration.IsPositive() {
			length = timeline.FormatClock(iv.DurationWithin(det.Duration))
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			timeline.FormatClock(iv.Start),
			iv.EndLabel(),
			length,
		})
	}
	tbl := tableSpec{headers: []string{"#", "Start", "End", "Length"}, right: []int{0, 1, 2, 3}}
	if total := det.Total(); total.IsPositive() {
		tbl.footer = []string{"", "", "Kept", timeline.FormatClock(timeline.TotalDuration(intervals, total))}
	}
	fmt.Fprint(out, tbl.render(rows))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Source: %s, %d near-static run(s) cut (min_drop %ss, min_keep %ss)\n",
		det.Source, det.Stats.CutRuns,
		timeline.FormatSeconds(det.Settings.MinDrop), timeline.FormatSeconds(det.Settings.MinKeep))
	if det.Aligned != nil {
		fmt.Fprintf(out, "Aligned to %d keyframe(s)\n", det.Keyframes)
	}
	if trim.WholeInput(intervals) {
		fmt.Fprintln(out, "Nothing to drop: trim would leave the input untouched")
	}
}
