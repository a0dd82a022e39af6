package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"wanderbook/internal/adapters/bookingcom"
	"wanderbook/internal/app"
	"wanderbook/internal/bootstrap"
	"wanderbook/internal/catalog"
	"wanderbook/internal/shared"
)

func warmCmd(cfg shared.Config) *cobra.Command {
	var (
		destinations []string
		daysAhead    int
		nights       int
		adults       int
		workers      int
	)
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Pre-populate the search cache from the hotel provider",
		Long: `Runs one provider search per destination for a stay starting --days-ahead
days from today and writes the results to the configured cache.

Examples:
  hotelctl warm
  hotelctl warm --destinations miami,paris --nights 3 --workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := bootstrap.Provider(cfg)
			if !provider.Configured() {
				return errors.New("BOOKING_API_KEY and BOOKING_AFFILIATE_ID are required to warm the cache")
			}
			backend, err := bootstrap.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backend.Close(cmd.Context())

			hotels := app.NewHotelService(provider, backend.Cache, catalog.MustLoad(), cfg.SearchTTL, cfg.DetailTTL)
			checkIn := time.Now().UTC().AddDate(0, 0, daysAhead)
			results, err := app.NewCacheWarmer(hotels, workers).Warm(cmd.Context(), destinations, checkIn, nights, adults)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DESTINATION\tHOTELS\tERROR")
			failed := 0
			for _, r := range results {
				if r.Destination == "" {
					continue
				}
				msg := ""
				if r.Err != nil {
					failed++
					msg = r.Err.Error()
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Destination, r.Hotels, msg)
			}
			_ = tw.Flush()
			if err != nil {
				return err
			}
			if failed > 0 {
				return errors.Newf("%d of %d destinations failed", failed, len(destinations))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&destinations, "destinations", bookingcom.DestinationNames(), "destinations to warm")
	cmd.Flags().IntVar(&daysAhead, "days-ahead", 14, "days from today until check-in")
	cmd.Flags().IntVar(&nights, "nights", 2, "length of stay")
	cmd.Flags().IntVar(&adults, "adults", 2, "adults per search")
	cmd.Flags().IntVar(&workers, "workers", cfg.WarmWorkers, "concurrent provider calls")
	return cmd
}

func sweepCmd(cfg shared.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired cache entries and sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := bootstrap.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backend.Close(cmd.Context())

			n, err := backend.Store.SweepExpired(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries from %s\n", n, cfg.StoreDriver)
			return nil
		},
	}
}

func migrateCmd(cfg shared.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables (mysql) or indexes (mongo) for the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open applies the schema for either driver.
			backend, err := bootstrap.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			backend.Close(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", strings.ToLower(cfg.StoreDriver))
			return nil
		},
	}
}
