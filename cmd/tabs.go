package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List the browser's open tabs",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTabs(cmd); err != nil {
			log.Fatalf("Listing tabs failed: %v", err)
		}
	},
}

func runTabs(cmd *cobra.Command) error {
	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	tabs, err := backend.Tabs(context.Background())
	if err != nil {
		return err
	}

	if len(tabs) == 0 {
		pterm.Info.Println("No open tabs")
		return nil
	}

	tableData := pterm.TableData{{"ID", "Title", "URL"}}
	for _, tab := range tabs {
		tableData = append(tableData, []string{tab.ID, truncate(tab.Title, 40), truncate(tab.URL, 60)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func init() {
	rootCmd.AddCommand(tabsCmd)
}
