package cmd

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/fabricsync/fabricsync/pkg/cli/format"
)

var (
	// Discover command flags
	discoverConn controllerFlags
	refreshCache bool
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Probe a controller's endpoint catalog",
	Long: `Probe the well-known API paths of a controller, classify every
failure and persist the capability record. For example:
  fabricsync discover --controller nsx01.example.com
  fabricsync discover --controller nsx01.example.com --refresh`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverConn.register(discoverCmd)
	discoverCmd.Flags().BoolVar(&refreshCache, "refresh", false, "Ignore the cached record and re-probe")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	sess, err := application.openSession(&discoverConn)
	if err != nil {
		return err
	}

	// serve from cache unless a refresh was requested
	if !refreshCache {
		cached, err := sess.cacheStore.Load(discoverConn.controller)
		if err != nil {
			return err
		}
		if cached != nil && cached.IsValid(time.Now()) {
			fmt.Println(format.Info("Using cached discovery (run with --refresh to re-probe)"))
			renderCacheSummary(cached)
			return renderEndpointTable(cached)
		}
	}

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Probing %s ...", discoverConn.controller))
	cache, err := sess.discoverer.Discover(cmd.Context(), discoverConn.controller)
	if err != nil {
		spinner.Fail("Discovery failed")
		if cache != nil {
			renderCacheSummary(cache)
			renderEndpointTable(cache)
		}
		return err
	}
	spinner.Success(fmt.Sprintf("Discovery complete: %d of %d endpoints valid",
		cache.Statistics.Valid, cache.Statistics.Total))

	renderCacheSummary(cache)
	return renderEndpointTable(cache)
}
