package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"chatdispatch/pkg/history"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print persisted message history",
	Long:  "Reads the message history written under storage_path and prints the most recent entries.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, log, err := bootstrap("cmd.history")
		if err != nil {
			fmt.Printf("%v\n", err)
			return
		}

		if !cfg.EnableMessageHistory {
			fmt.Println("message history is disabled (enable_message_history=false)")
			return
		}

		store, err := history.Open(cfg.StoragePath)
		if err != nil {
			log.Error("Failed to open message history", "error", err)
			return
		}

		entries, err := store.Load()
		if err != nil {
			log.Error("Failed to read message history", "path", store.Path(), "error", err)
			return
		}

		printHistory(os.Stdout, entries, historyLimit)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of most recent entries to print (0 prints all)")
}

func printHistory(out io.Writer, entries []history.Entry, limit int) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "no messages recorded")
		return
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	for _, entry := range entries {
		fmt.Fprintf(out, "%s [%s] %s: %s\n",
			entry.Timestamp.Local().Format(time.DateTime),
			entry.Type,
			entry.Sender,
			previewText(fmt.Sprint(entry.Content), previewRunes),
		)
	}
}
