package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabricsync/fabricsync/pkg/cli/format"
	"github.com/fabricsync/fabricsync/pkg/discovery"
)

var cacheController string

// cacheCmd groups endpoint cache inspection commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the endpoint capability cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached endpoint record for a controller",
	RunE:  runCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the cached endpoint record for a controller",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheCmd.PersistentFlags().StringVar(&cacheController, "controller", "", "Controller address (required)")
	cacheCmd.MarkPersistentFlagRequired("controller")
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	store := discovery.NewCacheStore(cfg.CacheDir(), nil)
	cache, err := store.Load(cacheController)
	if err != nil {
		return err
	}
	if cache == nil {
		fmt.Printf("No endpoint cache for %s\n", cacheController)
		return nil
	}

	if !cache.IsValid(time.Now()) {
		fmt.Println(format.Warning("Cache is expired; the next run will rediscover"))
	}
	renderCacheSummary(cache)
	return renderEndpointTable(cache)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store := discovery.NewCacheStore(cfg.CacheDir(), nil)
	if err := store.Clear(cacheController); err != nil {
		return err
	}
	format.PrintSuccess(fmt.Sprintf("Endpoint cache cleared for %s", cacheController))
	return nil
}
