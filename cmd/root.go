package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tabjar/tabjar/internal/browser"
	"github.com/tabjar/tabjar/internal/cookies"
	"github.com/tabjar/tabjar/internal/settings"
	"github.com/tabjar/tabjar/internal/web"
	"github.com/tabjar/tabjar/internal/webstorage"
)

// rootCmd starts the dashboard web UI when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "tabjar",
	Short: "Inspect and edit a live browser's cookies and web storage",
	Long: `tabjar attaches to a Chromium browser over the DevTools protocol and
lets you list, filter, edit, export and import the cookies and
localStorage/sessionStorage of its tabs, from the command line or a
local web dashboard.

Start Chrome with --remote-debugging-port=9222 and point tabjar at it:

  tabjar --remote-url=http://127.0.0.1:9222`,
	Run: func(cmd *cobra.Command, args []string) {
		backend, err := initBackend(cmd)
		if err != nil {
			log.Fatalf("Failed to connect to browser: %v", err)
		}
		defer backend.Close()

		store, err := initSettings(cmd)
		if err != nil {
			log.Fatalf("Failed to initialize settings store: %v", err)
		}
		defer store.Close()

		host, err := cmd.Flags().GetString("host")
		if err != nil {
			log.Fatalf("Failed to get host: %v", err)
		}
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			log.Fatalf("Failed to get port: %v", err)
		}

		jar := cookies.NewJar(backend)
		storage := webstorage.NewService(backend)
		web.StartServer(fmt.Sprintf("%s:%d", host, port), jar, storage, store)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// .env values act as defaults for the TABJAR_* lookups below; a missing
	// file is fine.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("remote-url", "", "DevTools endpoint of a running browser (e.g. http://127.0.0.1:9222). Defaults to $TABJAR_REMOTE_URL")
	rootCmd.PersistentFlags().String("chrome-path", "", "Path to Chrome/Chromium executable when launching a browser. Defaults to $TABJAR_CHROME_PATH")
	rootCmd.PersistentFlags().Bool("headful", false, "Run a launched Chrome with a visible window (not headless)")
	rootCmd.PersistentFlags().StringP("db", "d", "tabjar.db", "Path to the settings SQLite database file. Defaults to $TABJAR_DB")

	rootCmd.Flags().IntP("port", "p", 8537, "Port for the dashboard to listen on")
	rootCmd.Flags().String("host", "localhost", "Host for the dashboard to listen on")
}

// initBackend builds the CDP backend from the persistent flags, falling back
// to TABJAR_* environment defaults.
func initBackend(cmd *cobra.Command) (browser.Backend, error) {
	remoteURL, err := cmd.Flags().GetString("remote-url")
	if err != nil {
		return nil, fmt.Errorf("failed to read --remote-url: %w", err)
	}
	if remoteURL == "" {
		remoteURL = os.Getenv("TABJAR_REMOTE_URL")
	}

	chromePath, err := cmd.Flags().GetString("chrome-path")
	if err != nil {
		return nil, fmt.Errorf("failed to read --chrome-path: %w", err)
	}
	if chromePath == "" {
		chromePath = os.Getenv("TABJAR_CHROME_PATH")
	}
	if chromePath == "" && remoteURL == "" && runtime.GOOS == "darwin" {
		// Best-effort default for macOS.
		chromePath = "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	}

	headful, err := cmd.Flags().GetBool("headful")
	if err != nil {
		return nil, fmt.Errorf("failed to read --headful: %w", err)
	}

	return browser.NewCDP(context.Background(), browser.CDPOptions{
		RemoteURL:  remoteURL,
		ChromePath: chromePath,
		Headless:   !headful,
	})
}

func initSettings(cmd *cobra.Command) (*settings.Store, error) {
	dbPath, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, fmt.Errorf("failed to read --db: %w", err)
	}
	if dbPath == "tabjar.db" {
		if env := os.Getenv("TABJAR_DB"); env != "" {
			dbPath = env
		}
	}

	store, err := settings.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate settings store: %w", err)
	}
	return store, nil
}
