package cli

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/engine/cache"
)

// NewCacheCmd creates the cache command group for the result cache.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cmd.AddCommand(newCacheStatsCmd(), newCacheCleanupCmd(), newCacheClearCmd())
	return cmd
}

// openEnabledCache opens the cache, reporting a disabled cache as an error.
func openEnabledCache() (*cache.FileStore, error) {
	store, err := openCache(config.GetGlobalConfig())
	if err != nil {
		return nil, err
	}
	if !store.IsEnabled() {
		return nil, errors.New("the result cache is disabled (cache.enabled or " + cache.EnvCacheEnabled + ")")
	}
	return store, nil
}

func newCacheStatsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and entries per job kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openEnabledCache()
			if err != nil {
				return err
			}
			stats, err := store.Stats()
			if err != nil {
				return err
			}

			if output == outputJSON {
				return renderJSON(cmd.OutOrStdout(), map[string]any{
					"directory":           store.GetDirectory(),
					"ttl_seconds":         store.GetTTL(),
					"entries":             stats.Entries,
					"expired":             stats.Expired,
					"size_bytes":          stats.SizeBytes,
					"by_kind":             stats.ByKind,
					"oldest_age_seconds":  int(stats.OldestAge.Seconds()),
					"next_expiry_seconds": int(stats.NextExpiry.Seconds()),
				})
			}

			cmd.Printf("Directory: %s\n", store.GetDirectory())
			cmd.Printf("TTL:       %s\n", cache.FormatDuration(time.Duration(store.GetTTL())*time.Second))
			cmd.Printf("Entries:   %d (%d expired)\n", stats.Entries, stats.Expired)
			cmd.Print(message.NewPrinter(language.English).Sprintf("Size:      %d bytes\n", stats.SizeBytes))
			if stats.Entries > stats.Expired {
				cmd.Printf("Oldest:    %s old, next expiry in %s\n",
					cache.FormatDuration(stats.OldestAge), cache.FormatDuration(stats.NextExpiry))
			}

			kinds := make([]string, 0, len(stats.ByKind))
			for k := range stats.ByKind {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			rows := make([][]string, 0, len(kinds))
			for _, k := range kinds {
				rows = append(rows, []string{k, strconv.Itoa(stats.ByKind[k])})
			}
			if len(rows) > 0 {
				cmd.Println(renderTable([]string{"Kind", "Entries"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func newCacheCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openEnabledCache()
			if err != nil {
				return err
			}
			removed, err := store.CleanupExpired()
			if err != nil {
				return err
			}
			cmd.Printf("Removed %d expired entries.\n", removed)
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openEnabledCache()
			if err != nil {
				return err
			}
			if !confirmDestructive(cmd.OutOrStdout(), "Delete every cached result in "+store.GetDirectory()+"?", yes) {
				return nil
			}
			if err := store.Clear(); err != nil {
				return err
			}
			cmd.Println("Cache cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
