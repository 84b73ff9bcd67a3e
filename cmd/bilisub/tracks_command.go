package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"bilisub/internal/language"
	"bilisub/internal/metadata"
	"bilisub/internal/pipeline"
)

type trackView struct {
	Lan    string `json:"lan"`
	Name   string `json:"name"`
	Label  string `json:"label,omitempty"`
	Bucket string `json:"bucket"`
	Auto   bool   `json:"machine_generated"`
	File   string `json:"file"`
	URL    string `json:"url"`
}

type tracksView struct {
	Video  string      `json:"video"`
	Title  string      `json:"title,omitempty"`
	Aid    int64       `json:"aid"`
	Cid    int64       `json:"cid"`
	Tracks []trackView `json:"tracks"`
}

func newTracksCommand(ctx *commandContext) *cobra.Command {
	var page int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "tracks <reference>",
		Short: "List the subtitle tracks a video offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			built, err := ctx.buildComponents(false)
			if err != nil {
				return err
			}
			defer built.Close()

			runCtx, stop := signal.NotifyContext(commandBaseContext(cmd), os.Interrupt)
			defer stop()

			plan, err := built.runner.Plan(runCtx, pipeline.Options{Input: args[0], Page: page})
			if err != nil {
				return err
			}
			view := tracksView{
				Video:  plan.Code,
				Title:  plan.Title,
				Aid:    plan.Identifiers.AssetID,
				Cid:    plan.Identifiers.ChannelID,
				Tracks: make([]trackView, len(plan.Available)),
			}
			files := pipeline.FileNames(plan.Code, plan.Available, cfg.Output.Format)
			for i, track := range plan.Available {
				view.Tracks[i] = trackView{
					Lan:    track.LanguageKey,
					Name:   language.DisplayName(track.LanguageKey),
					Label:  track.Label,
					Bucket: metadata.Bucket(track.LanguageKey),
					Auto:   language.IsMachineGenerated(track.LanguageKey),
					File:   files[i],
					URL:    track.CueListURL,
				}
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  aid=%d cid=%d", view.Video, view.Aid, view.Cid)
			if view.Title != "" {
				fmt.Fprintf(out, "  %s", view.Title)
			}
			fmt.Fprintln(out)
			if len(view.Tracks) == 0 {
				fmt.Fprintln(out, "No subtitle tracks.")
				return nil
			}
			rows := make([][]string, len(view.Tracks))
			for i, track := range view.Tracks {
				rows[i] = []string{strconv.Itoa(i + 1), track.Lan, track.Name, track.Bucket, track.File}
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "#", right: true},
				{header: "Lang"},
				{header: "Name"},
				{header: "Bucket"},
				{header: "File"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number for multi-part videos")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print tracks as JSON")
	return cmd
}
