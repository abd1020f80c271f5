// The cookies command group inspects and edits the browser's cookie jar.
//
// Example usage:
//
//	tabjar cookies list --domain=example.com --search=session
//	tabjar cookies set sid abc123 --domain=example.com --secure --expires-in=24h
//	tabjar cookies delete sid --domain=example.com
//	tabjar cookies export > cookies.json
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tabjar/tabjar/internal/browser"
	"github.com/tabjar/tabjar/internal/cookies"
	"github.com/tabjar/tabjar/internal/dashboard"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Inspect and edit browser cookies",
}

var cookiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cookies, optionally filtered and sorted",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCookiesList(cmd); err != nil {
			log.Fatalf("Listing cookies failed: %v", err)
		}
	},
}

var cookiesGetCmd = &cobra.Command{
	Use:   "get <name> <domain>",
	Short: "Show a single cookie",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCookiesGet(cmd, args[0], args[1]); err != nil {
			log.Fatalf("Getting cookie failed: %v", err)
		}
	},
}

var cookiesSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Create or overwrite a cookie",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCookiesSet(cmd, args[0], args[1]); err != nil {
			log.Fatalf("Setting cookie failed: %v", err)
		}
	},
}

var cookiesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a cookie",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCookiesDelete(cmd, args[0]); err != nil {
			log.Fatalf("Deleting cookie failed: %v", err)
		}
	},
}

var cookiesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every visible cookie",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCookiesClear(cmd); err != nil {
			log.Fatalf("Clearing cookies failed: %v", err)
		}
	},
}

var cookiesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all cookies as JSON to stdout",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCookiesExport(cmd); err != nil {
			log.Fatalf("Exporting cookies failed: %v", err)
		}
	},
}

func runCookiesList(cmd *cobra.Command) error {
	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	search, err := cmd.Flags().GetString("search")
	if err != nil {
		return fmt.Errorf("failed to read --search: %w", err)
	}
	domain, err := cmd.Flags().GetString("domain")
	if err != nil {
		return fmt.Errorf("failed to read --domain: %w", err)
	}
	expiredOnly, err := cmd.Flags().GetBool("expired")
	if err != nil {
		return fmt.Errorf("failed to read --expired: %w", err)
	}
	sortField, err := cmd.Flags().GetString("sort")
	if err != nil {
		return fmt.Errorf("failed to read --sort: %w", err)
	}
	desc, err := cmd.Flags().GetBool("desc")
	if err != nil {
		return fmt.Errorf("failed to read --desc: %w", err)
	}

	jar := cookies.NewJar(backend)
	all, err := jar.Filter(context.Background(), func(browser.Cookie) bool { return true })
	if err != nil {
		return err
	}

	state := dashboard.State{
		Cookies:     all,
		Search:      search,
		Domain:      domain,
		ExpiredOnly: expiredOnly,
		SortField:   dashboard.SortField(sortField),
		Descending:  desc,
	}
	visible := state.Visible(time.Now())

	if len(visible) == 0 {
		pterm.Info.Println("No cookies match")
		return nil
	}

	tableData := pterm.TableData{{"Name", "Value", "Domain", "Path", "Flags", "Expires"}}
	for _, c := range visible {
		tableData = append(tableData, []string{
			c.Name,
			truncate(c.Value, 40),
			c.Domain,
			c.Path,
			cookieFlags(c),
			expiresColumn(c),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func runCookiesGet(cmd *cobra.Command, name, domain string) error {
	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	jar := cookies.NewJar(backend)
	c, ok, err := jar.Get(context.Background(), name, domain)
	if err != nil {
		return err
	}
	if !ok {
		pterm.Info.Printf("No cookie %q for domain %q\n", name, domain)
		return nil
	}

	tableData := pterm.TableData{
		{"Property", "Value"},
		{"Name", c.Name},
		{"Value", c.Value},
		{"Domain", c.Domain},
		{"Path", c.Path},
		{"Secure", fmt.Sprintf("%t", c.Secure)},
		{"HttpOnly", fmt.Sprintf("%t", c.HTTPOnly)},
		{"SameSite", string(c.SameSite)},
		{"Expires", expiresColumn(c)},
	}
	return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func runCookiesSet(cmd *cobra.Command, name, value string) error {
	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	domain, err := cmd.Flags().GetString("domain")
	if err != nil {
		return fmt.Errorf("failed to read --domain: %w", err)
	}
	path, err := cmd.Flags().GetString("path")
	if err != nil {
		return fmt.Errorf("failed to read --path: %w", err)
	}
	secure, err := cmd.Flags().GetBool("secure")
	if err != nil {
		return fmt.Errorf("failed to read --secure: %w", err)
	}
	httpOnly, err := cmd.Flags().GetBool("http-only")
	if err != nil {
		return fmt.Errorf("failed to read --http-only: %w", err)
	}
	sameSite, err := cmd.Flags().GetString("same-site")
	if err != nil {
		return fmt.Errorf("failed to read --same-site: %w", err)
	}
	expiresIn, err := cmd.Flags().GetDuration("expires-in")
	if err != nil {
		return fmt.Errorf("failed to read --expires-in: %w", err)
	}

	opts := cookies.SetOptions{
		Domain:   domain,
		Path:     path,
		Secure:   secure,
		HTTPOnly: httpOnly,
		SameSite: browser.SameSite(sameSite),
	}
	if expiresIn > 0 {
		exp := time.Now().Add(expiresIn)
		opts.Expires = &exp
	}

	jar := cookies.NewJar(backend)
	if err := jar.Set(context.Background(), name, value, opts); err != nil {
		return err
	}
	pterm.Success.Printf("Set cookie %s for %s\n", name, domain)
	return nil
}

func runCookiesDelete(cmd *cobra.Command, name string) error {
	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	domain, err := cmd.Flags().GetString("domain")
	if err != nil {
		return fmt.Errorf("failed to read --domain: %w", err)
	}
	path, err := cmd.Flags().GetString("path")
	if err != nil {
		return fmt.Errorf("failed to read --path: %w", err)
	}

	jar := cookies.NewJar(backend)
	if err := jar.Delete(context.Background(), name, domain, path); err != nil {
		return err
	}
	pterm.Success.Printf("Deleted cookie %s\n", name)
	return nil
}

func runCookiesClear(cmd *cobra.Command) error {
	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	jar := cookies.NewJar(backend)
	if err := jar.Clear(context.Background()); err != nil {
		return err
	}
	pterm.Success.Println("Cleared all cookies")
	return nil
}

func runCookiesExport(cmd *cobra.Command) error {
	backend, err := initBackend(cmd)
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer backend.Close()

	jar := cookies.NewJar(backend)
	entries, err := jar.Entries(context.Background())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

func cookieFlags(c browser.Cookie) string {
	var flags []string
	if c.Secure {
		flags = append(flags, "secure")
	}
	if c.HTTPOnly {
		flags = append(flags, "httpOnly")
	}
	if c.SameSite != "" {
		flags = append(flags, string(c.SameSite))
	}
	return strings.Join(flags, ",")
}

func expiresColumn(c browser.Cookie) string {
	if c.Expires == nil {
		return "session"
	}
	return c.Expires.Format(time.RFC3339)
}

// truncate shortens s to max runes. Counting runes keeps multibyte values
// from being cut mid-character in table output.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func init() {
	rootCmd.AddCommand(cookiesCmd)
	cookiesCmd.AddCommand(cookiesListCmd, cookiesGetCmd, cookiesSetCmd, cookiesDeleteCmd, cookiesClearCmd, cookiesExportCmd)

	cookiesListCmd.Flags().String("search", "", "Case-insensitive substring match on name, value, or domain")
	cookiesListCmd.Flags().String("domain", "all", "Exact domain filter ('all' disables it)")
	cookiesListCmd.Flags().Bool("expired", false, "Show only cookies that have already expired")
	cookiesListCmd.Flags().String("sort", "name", "Sort field: name, value, domain, path, expires")
	cookiesListCmd.Flags().Bool("desc", false, "Sort descending")

	cookiesSetCmd.Flags().String("domain", "", "Cookie domain")
	cookiesSetCmd.Flags().String("path", "/", "Cookie path")
	cookiesSetCmd.Flags().Bool("secure", false, "Set the Secure flag")
	cookiesSetCmd.Flags().Bool("http-only", false, "Set the HttpOnly flag")
	cookiesSetCmd.Flags().String("same-site", "", "SameSite policy: strict, lax, no_restriction")
	cookiesSetCmd.Flags().Duration("expires-in", 0, "Expire after this duration (0 = session cookie)")

	cookiesDeleteCmd.Flags().String("domain", "", "Cookie domain")
	cookiesDeleteCmd.Flags().String("path", "", "Cookie path")
}
