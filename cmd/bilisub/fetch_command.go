package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"bilisub/internal/language"
	"bilisub/internal/metadata"
	"bilisub/internal/pipeline"
	"bilisub/internal/services"
)

type fetchFlags struct {
	input        string
	outDir       string
	languages    string
	langPriority string
	page         int
	format       string
	subtitleURL  string
	lanKey       string
	noHistory    bool
	json         bool
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch [reference]",
		Short: "Download subtitles for a video",
		Long: "Resolve a video reference (BV code, video URL or short link), list its subtitle\n" +
			"tracks and write each selected track to {code}.{language}.srt.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if flags.input != "" && flags.input != args[0] {
					return services.Wrap(services.ErrValidation, "cli", "fetch", "pass the reference either as an argument or with --input", nil)
				}
				flags.input = args[0]
			}
			if strings.TrimSpace(flags.input) == "" {
				return services.Wrap(services.ErrResolution, "cli", "fetch", "a video reference is required", nil)
			}
			opts, err := fetchOptions(cmd, ctx, flags)
			if err != nil {
				return err
			}

			built, err := ctx.buildComponents(!flags.noHistory)
			if err != nil {
				return err
			}
			defer built.Close()

			runCtx, stop := signal.NotifyContext(commandBaseContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, runErr := built.runner.Run(runCtx, opts)
			if flags.json {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				return runErr
			}
			printFetchResult(cmd, result, opts.Languages)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "BV code, video URL or short link")
	cmd.Flags().StringVarP(&flags.outDir, "outdir", "o", "", "Output directory (default output.dir)")
	cmd.Flags().StringVar(&flags.languages, "lang", "", "Comma-separated language keys to keep, exact match (e.g. en,zh-CN)")
	cmd.Flags().StringVar(&flags.langPriority, "lang-priority", "", "Keep only the first available bucket from en,zh,other")
	cmd.Flags().IntVar(&flags.page, "page", 1, "Page number for multi-part videos")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: srt or txt (default output.format)")
	cmd.Flags().StringVar(&flags.subtitleURL, "subtitle-url", "", "Convert this cue list URL directly instead of looking up tracks")
	cmd.Flags().StringVar(&flags.lanKey, "lan-key", pipeline.UndeterminedLanguage, "Language key used in the file name with --subtitle-url")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Do not record written files in the history database")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the run result as JSON")
	return cmd
}

// fetchOptions merges flags over configuration defaults.
func fetchOptions(cmd *cobra.Command, ctx *commandContext, flags fetchFlags) (pipeline.Options, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return pipeline.Options{}, err
	}
	if flags.page < 1 {
		return pipeline.Options{}, services.Wrap(services.ErrValidation, "cli", "fetch", "--page must be at least 1", nil)
	}

	opts := pipeline.Options{
		Input:       strings.TrimSpace(flags.input),
		OutDir:      cfg.Output.Dir,
		Languages:   metadata.NewLanguageFilter(cfg.Output.Languages...),
		Priority:    cfg.Output.LangPriority,
		Page:        flags.page,
		Format:      cfg.Output.Format,
		SubtitleURL: strings.TrimSpace(flags.subtitleURL),
		LanguageKey: strings.TrimSpace(flags.lanKey),
	}
	if cmd.Flags().Changed("outdir") {
		opts.OutDir = strings.TrimSpace(flags.outDir)
	}
	if cmd.Flags().Changed("lang") {
		opts.Languages = metadata.ParseLanguageFilter(flags.languages)
	}
	if cmd.Flags().Changed("lang-priority") {
		opts.Priority = nil
		for _, bucket := range splitList(flags.langPriority) {
			bucket = strings.ToLower(bucket)
			switch bucket {
			case metadata.BucketEnglish, metadata.BucketChinese, metadata.BucketOther:
				opts.Priority = append(opts.Priority, bucket)
			default:
				return pipeline.Options{}, services.Wrap(services.ErrValidation, "cli", "fetch",
					fmt.Sprintf("unknown priority bucket %q (want en, zh or other)", bucket), nil)
			}
		}
	}
	if cmd.Flags().Changed("format") {
		opts.Format = flags.format
	}
	return opts, nil
}

func printFetchResult(cmd *cobra.Command, result pipeline.Result, filter metadata.LanguageFilter) {
	out := cmd.OutOrStdout()
	switch result.Outcome {
	case pipeline.OutcomeNoSubtitles:
		fmt.Fprintf(out, "No subtitles available for %s.\n", result.Code)
		return
	case pipeline.OutcomeFilteredOut:
		fmt.Fprintf(out, "No subtitles left for %s after language filtering (wanted: %s; available: %s).\n",
			result.Code, strings.Join(filter.Keys(), ", "), availableKeys(result.Available))
		return
	case pipeline.OutcomeNoPriorityMatch:
		fmt.Fprintf(out, "No subtitles for %s matched the language priority (available: %s).\n",
			result.Code, availableKeys(result.Available))
		return
	}
	if result.Code == "" {
		return
	}

	if result.Title != "" {
		fmt.Fprintf(out, "%s  %s\n", result.Code, result.Title)
	}
	if len(result.Outputs) > 0 {
		rows := make([][]string, 0, len(result.Outputs))
		for _, output := range result.Outputs {
			rows = append(rows, []string{
				output.Track.LanguageKey,
				language.DisplayName(output.Track.LanguageKey),
				strconv.Itoa(output.Blocks),
				output.Path,
			})
		}
		fmt.Fprintln(out, renderTable([]column{
			{header: "Lang"},
			{header: "Name"},
			{header: "Cues", right: true},
			{header: "File", maxWidth: 72},
		}, rows))
	}
	for _, failure := range result.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", failure.Track.LanguageKey, failure.Message)
	}
}

func availableKeys(tracks []metadata.SubtitleTrack) string {
	if len(tracks) == 0 {
		return "none"
	}
	keys := make([]string, len(tracks))
	for i, track := range tracks {
		keys[i] = track.LanguageKey
	}
	return strings.Join(keys, ", ")
}

func commandBaseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
