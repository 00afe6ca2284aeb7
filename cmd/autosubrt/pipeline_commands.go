package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"autosubrt-server-go/internal/app/services"
	"autosubrt-server-go/internal/bootstrap"
	"autosubrt-server-go/internal/domain/subtitle"
)

type srtOutput struct {
	JobID   string `json:"job_id"`
	SrtURL  string `json:"srt_url"`
	SrtPath string `json:"srt_path"`
	Cues    int    `json:"cues"`
}

type textOutput struct {
	JobID string `json:"job_id"`
	Text  string `json:"text"`
}

func isRemote(arg string) bool {
	lower := strings.ToLower(arg)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// withApp 构建一次性服务组件，日志写到 stderr，stdout 只输出结果
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	app, err := bootstrap.Build(ctx, bootstrap.Options{
		ConfigPath: flags.config,
		DotEnv:     flags.dotenv,
		LogWriter:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return writeEnvelope(cmd, flags.lang, nil, err)
	}
	defer app.Close(context.WithoutCancel(ctx))
	return fn(ctx, app)
}

func newSrtCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "srt <audio-url|audio-file>",
		Short: "Recognize audio and write an SRT subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				var (
					result *services.SubtitleResult
					err    error
				)
				if isRemote(args[0]) {
					result, err = app.Recognition.SubtitleFromURL(ctx, args[0])
				} else {
					result, err = app.Recognition.SubtitleFromFile(ctx, args[0])
				}
				if err != nil {
					return writeEnvelope(cmd, flags.lang, nil, err)
				}
				return writeEnvelope(cmd, flags.lang, srtOutput{
					JobID:   result.JobID,
					SrtURL:  result.SrtURL,
					SrtPath: result.SrtPath,
					Cues:    len(result.Cues),
				}, nil)
			})
		},
	}
}

func newTextCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "text <audio-url>",
		Short: "Recognize audio and print the transcript text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				result, err := app.Recognition.TextFromURL(ctx, args[0])
				if err != nil {
					return writeEnvelope(cmd, flags.lang, nil, err)
				}
				return writeEnvelope(cmd, flags.lang, textOutput{JobID: result.JobID, Text: result.Text}, nil)
			})
		},
	}
}

func newInspectCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <file.srt>",
		Short: "Parse an SRT file and print its cues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cues, err := subtitle.ParseFile(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, cues)
			}
			return renderCues(cmd, cues)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print cues as JSON")
	return cmd
}
