package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"autosubrt-server-go/internal/domain/subtitle"
)

func renderCues(cmd *cobra.Command, cues []subtitle.Cue) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"#", "Start", "End", "Duration", "Text"})
	var total int64
	for _, cue := range cues {
		duration := cue.EndMs - cue.StartMs
		total += duration
		tw.AppendRow(table.Row{
			strconv.Itoa(cue.Index),
			subtitle.ToSubtitleTime(cue.StartMs).String(),
			subtitle.ToSubtitleTime(cue.EndMs).String(),
			fmt.Sprintf("%.3fs", float64(duration)/1000),
			strings.ReplaceAll(cue.Text, "\n", " / "),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%.3fs", float64(total)/1000), fmt.Sprintf("%d cues", len(cues))})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	_, err := fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
	return err
}
