package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bilisub/internal/history"
	"bilisub/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var video string
	var clearAll bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previously written subtitle files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "History is disabled (history.enabled = false).")
				return nil
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if clearAll {
				removed, err := store.Clear(commandBaseContext(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d history entries.\n", removed)
				return nil
			}

			var entries []history.Entry
			if video != "" {
				entries, err = store.ForVideo(commandBaseContext(cmd), video)
			} else {
				entries, err = store.List(commandBaseContext(cmd), limit)
			}
			if err != nil {
				return err
			}
			if jsonOut {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No downloads recorded.")
				return nil
			}
			rows := make([][]string, len(entries))
			for i, entry := range entries {
				rows[i] = []string{
					entry.CreatedAt.Local().Format("2006-01-02 15:04"),
					entry.VideoCode,
					textutil.Truncate(entry.Title, 32),
					entry.LanguageKey,
					strconv.Itoa(entry.Blocks),
					entry.Path,
				}
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "When"},
				{header: "Video"},
				{header: "Title"},
				{header: "Lang"},
				{header: "Cues", right: true},
				{header: "File", maxWidth: 60},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum entries to show")
	cmd.Flags().StringVar(&video, "video", "", "Only show entries for this BV code")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all history entries")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print entries as JSON")
	return cmd
}
