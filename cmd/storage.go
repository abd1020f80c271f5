// The storage command group reads and writes the active tab's localStorage
// and sessionStorage.
//
// Example usage:
//
//	tabjar storage list --area=local
//	tabjar storage set theme dark
//	tabjar storage export --area=session --snapshot > session.json
//	tabjar storage import backup.json
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tabjar/tabjar/internal/browser"
	"github.com/tabjar/tabjar/internal/webstorage"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect and edit the active tab's web storage",
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active tab's storage entries",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStorageList(cmd); err != nil {
			log.Fatalf("Listing storage failed: %v", err)
		}
	},
}

var storageSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write one storage entry",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStorageSet(cmd, args[0], args[1]); err != nil {
			log.Fatalf("Setting storage entry failed: %v", err)
		}
	},
}

var storageDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete one storage entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStorageDelete(cmd, args[0]); err != nil {
			log.Fatalf("Deleting storage entry failed: %v", err)
		}
	},
}

var storageClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the active tab's storage area",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStorageClear(cmd); err != nil {
			log.Fatalf("Clearing storage failed: %v", err)
		}
	},
}

var storageExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the active tab's storage as JSON to stdout",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStorageExport(cmd); err != nil {
			log.Fatalf("Exporting storage failed: %v", err)
		}
	},
}

var storageImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a JSON object into the active tab's storage ('-' or no file reads stdin)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file := "-"
		if len(args) == 1 {
			file = args[0]
		}
		if err := runStorageImport(cmd, file); err != nil {
			log.Fatalf("Importing storage failed: %v", err)
		}
	},
}

// storageAreaFlag reads and validates the --area flag.
func storageAreaFlag(cmd *cobra.Command) (browser.StorageArea, error) {
	area, err := cmd.Flags().GetString("area")
	if err != nil {
		return "", fmt.Errorf("failed to read --area: %w", err)
	}
	switch browser.StorageArea(area) {
	case browser.AreaLocal, browser.AreaSession:
		return browser.StorageArea(area), nil
	default:
		return "", fmt.Errorf("invalid --area %q: use local or session", area)
	}
}

func runStorageList(cmd *cobra.Command) error {
	area, err := storageAreaFlag(cmd)
	if err != nil {
		return err
	}

	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	service := webstorage.NewService(backend)
	entries, err := service.GetAllEntries(context.Background(), area)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		pterm.Info.Printf("No %s storage entries in the active tab\n", area)
		return nil
	}

	tableData := pterm.TableData{{"Key", "Value"}}
	for _, e := range entries {
		tableData = append(tableData, []string{e.Key, truncate(e.Value, 60)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func runStorageSet(cmd *cobra.Command, key, value string) error {
	area, err := storageAreaFlag(cmd)
	if err != nil {
		return err
	}

	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	service := webstorage.NewService(backend)
	if err := service.SetEntry(context.Background(), area, key, value); err != nil {
		return err
	}
	pterm.Success.Printf("Set %s storage key %s\n", area, key)
	return nil
}

func runStorageDelete(cmd *cobra.Command, key string) error {
	area, err := storageAreaFlag(cmd)
	if err != nil {
		return err
	}

	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	service := webstorage.NewService(backend)
	if err := service.DeleteEntry(context.Background(), area, key); err != nil {
		return err
	}
	pterm.Success.Printf("Deleted %s storage key %s\n", area, key)
	return nil
}

func runStorageClear(cmd *cobra.Command) error {
	area, err := storageAreaFlag(cmd)
	if err != nil {
		return err
	}

	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	service := webstorage.NewService(backend)
	if err := service.ClearAll(context.Background(), area); err != nil {
		return err
	}
	pterm.Success.Printf("Cleared %s storage\n", area)
	return nil
}

func runStorageExport(cmd *cobra.Command) error {
	area, err := storageAreaFlag(cmd)
	if err != nil {
		return err
	}
	snapshot, err := cmd.Flags().GetBool("snapshot")
	if err != nil {
		return fmt.Errorf("failed to read --snapshot: %w", err)
	}

	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	service := webstorage.NewService(backend)

	var payload string
	if snapshot {
		snap, err := service.Snapshot(context.Background(), area)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		payload = string(data)
	} else {
		payload, err = service.Export(context.Background(), area)
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(os.Stdout, payload)
	return err
}

func runStorageImport(cmd *cobra.Command, file string) error {
	area, err := storageAreaFlag(cmd)
	if err != nil {
		return err
	}

	var data []byte
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
	}

	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	service := webstorage.NewService(backend)
	if err := service.Import(context.Background(), area, string(data)); err != nil {
		return err
	}
	pterm.Success.Printf("Imported into %s storage\n", area)
	return nil
}

func init() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storageListCmd, storageSetCmd, storageDeleteCmd, storageClearCmd, storageExportCmd, storageImportCmd)

	storageCmd.PersistentFlags().String("area", "local", "Storage area: local or session")
	storageExportCmd.Flags().Bool("snapshot", false, "Export the richer snapshot format (type, entries, timestamp, url)")
}
