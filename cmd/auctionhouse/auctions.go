package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/MansiChugh28/auctionhouse"
	"github.com/spf13/cobra"
)

// ============================================================================
// Flag variables
// ============================================================================

var (
	auctionsJSONOutput bool

	// auctions list
	auctionsListStatus  string
	auctionsListPage    int
	auctionsListPerPage int

	// auctions create
	auctionsCreateDescription string
	auctionsCreateCategory    string
	auctionsCreateCondition   string
	auctionsCreateLocation    string
	auctionsCreatePrice       float64
	auctionsCreateDuration    time.Duration

	// auctions stats
	auctionsStatsHours int
)

// ============================================================================
// Root auctions command
// ============================================================================

var auctionsCmd = &cobra.Command{
	Use:     "auctions",
	Aliases: []string{"auction"},
	Short:   "Browse and manage auctions",
}

// ============================================================================
// auctions list / mine
// ============================================================================

var auctionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List auctions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		page, err := client.Auctions().List(ctx, &auctionhouse.ListOptions{
			Status:  auctionsListStatus,
			Page:    auctionsListPage,
			PerPage: auctionsListPerPage,
		})
		if err != nil {
			return apiError("list auctions", err)
		}
		return printAuctions(cmd.OutOrStdout(), page)
	},
}

var auctionsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List auctions you created",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		page, err := client.Auctions().Mine(ctx)
		if err != nil {
			return apiError("list auctions", err)
		}
		return printAuctions(cmd.OutOrStdout(), page)
	},
}

func printAuctions(out io.Writer, page *auctionhouse.AuctionPage) error {
	if auctionsJSONOutput {
		return printJSON(out, page)
	}
	if len(page.Auctions) == 0 {
		fmt.Fprintln(out, "No auctions.")
		return nil
	}
	for _, a := range page.Auctions {
		fmt.Fprintf(out, "  %s: %s [%s] %.2f (%d bids, ends %s)\n",
			a.ID, a.Title, a.Status, currentPrice(a), a.BidCount, formatTime(a.EndsAt))
	}
	if page.Meta != nil && page.Meta.TotalPages > 1 {
		fmt.Fprintf(out, "Page %d of %d\n", page.Meta.Page, page.Meta.TotalPages)
	}
	return nil
}

// ============================================================================
// auctions show / create / delete
// ============================================================================

var auctionsShowCmd = &cobra.Command{
	Use:   "show <auction-id>",
	Short: "Show one auction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		a, err := client.Auctions().Get(ctx, auctionhouse.ID(args[0]))
		if err != nil {
			return apiError("fetch auction", err)
		}
		out := cmd.OutOrStdout()
		if auctionsJSONOutput {
			return printJSON(out, a)
		}
		fmt.Fprintf(out, "ID:          %s\n", a.ID)
		fmt.Fprintf(out, "Title:       %s\n", a.Title)
		fmt.Fprintf(out, "Status:      %s\n", a.Status)
		fmt.Fprintf(out, "Category:    %s\n", valueOrDefault(a.Category, "-"))
		fmt.Fprintf(out, "Price:       %.2f (starting %.2f)\n", currentPrice(*a), a.StartingPrice)
		fmt.Fprintf(out, "Bids:        %d\n", a.BidCount)
		fmt.Fprintf(out, "Ends:        %s\n", formatTime(a.EndsAt))
		if a.Description != "" {
			fmt.Fprintf(out, "\n%s\n", a.Description)
		}
		return nil
	},
}

var auctionsCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create an auction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if auctionsCreatePrice <= 0 {
			return fmt.Errorf("--price must be positive")
		}
		if auctionsCreateDuration <= 0 {
			return fmt.Errorf("--duration must be positive")
		}
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		a, err := client.Auctions().Create(ctx, &auctionhouse.CreateAuctionOptions{
			Title:         args[0],
			Description:   auctionsCreateDescription,
			Category:      auctionsCreateCategory,
			Condition:     auctionsCreateCondition,
			Location:      auctionsCreateLocation,
			StartingPrice: auctionsCreatePrice,
			EndsAt:        time.Now().Add(auctionsCreateDuration).UTC(),
		})
		if err != nil {
			return apiError("create auction", err)
		}
		if auctionsJSONOutput {
			return printJSON(cmd.OutOrStdout(), a)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Auction created: %s\n", a.ID)
		return nil
	},
}

var auctionsDeleteCmd = &cobra.Command{
	Use:   "delete <auction-id>",
	Short: "Delete an auction you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		if err := client.Auctions().Delete(ctx, auctionhouse.ID(args[0])); err != nil {
			return apiError("delete auction", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Auction %s deleted.\n", args[0])
		return nil
	},
}

// ============================================================================
// auctions bids / stats
// ============================================================================

var auctionsBidsCmd = &cobra.Command{
	Use:   "bids <auction-id>",
	Short: "Show the bid history of an auction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		bids, err := client.Auctions().BidHistory(ctx, auctionhouse.ID(args[0]))
		if err != nil {
			return apiError("fetch bids", err)
		}
		out := cmd.OutOrStdout()
		if auctionsJSONOutput {
			return printJSON(out, bids)
		}
		if len(bids) == 0 {
			fmt.Fprintln(out, "No bids yet.")
			return nil
		}
		for _, b := range bids {
			fmt.Fprintf(out, "  [%s] %s %.2f\n", formatTime(b.CreatedAt), valueOrDefault(b.Bidder, b.UserID.String()), b.Amount)
		}
		return nil
	},
}

var auctionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show marketplace statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		var hours *int
		if cmd.Flags().Changed("ending-soon-hours") {
			hours = &auctionsStatsHours
		}
		stats, err := client.Auctions().Statistics(ctx, hours)
		if err != nil {
			return apiError("fetch statistics", err)
		}
		out := cmd.OutOrStdout()
		if auctionsJSONOutput {
			fmt.Fprintln(out, string(stats.Raw))
			return nil
		}
		fmt.Fprintf(out, "Total auctions:  %d\n", stats.TotalAuctions)
		fmt.Fprintf(out, "Active auctions: %d\n", stats.ActiveAuctions)
		fmt.Fprintf(out, "Ending soon:     %d\n", stats.EndingSoonAuctions)
		fmt.Fprintf(out, "Total bids:      %d\n", stats.TotalBids)
		return nil
	},
}

// ============================================================================
// Helpers
// ============================================================================

func currentPrice(a auctionhouse.Auction) float64 {
	if a.CurrentPrice > 0 {
		return a.CurrentPrice
	}
	return a.StartingPrice
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC822)
}

func printJSON(out io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode output: %w", err)
	}
	fmt.Fprintln(out, string(b))
	return nil
}

func parseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func init() {
	auctionsCmd.PersistentFlags().BoolVar(&auctionsJSONOutput, "json", false, "Print raw JSON")

	auctionsListCmd.Flags().StringVar(&auctionsListStatus, "status", "active", "Filter by status (active, ended, all)")
	auctionsListCmd.Flags().IntVar(&auctionsListPage, "page", 1, "Page number")
	auctionsListCmd.Flags().IntVar(&auctionsListPerPage, "per-page", 20, "Results per page")

	auctionsCreateCmd.Flags().StringVar(&auctionsCreateDescription, "description", "", "Description")
	auctionsCreateCmd.Flags().StringVar(&auctionsCreateCategory, "category", "", "Category")
	auctionsCreateCmd.Flags().StringVar(&auctionsCreateCondition, "condition", "", "Item condition")
	auctionsCreateCmd.Flags().StringVar(&auctionsCreateLocation, "location", "", "Item location")
	auctionsCreateCmd.Flags().Float64Var(&auctionsCreatePrice, "price", 0, "Starting price")
	auctionsCreateCmd.Flags().DurationVar(&auctionsCreateDuration, "duration", 7*24*time.Hour, "Time until the auction ends")

	auctionsStatsCmd.Flags().IntVar(&auctionsStatsHours, "ending-soon-hours", 24, "Window for the ending-soon count")

	auctionsCmd.AddCommand(auctionsListCmd)
	auctionsCmd.AddCommand(auctionsMineCmd)
	auctionsCmd.AddCommand(auctionsShowCmd)
	auctionsCmd.AddCommand(auctionsCreateCmd)
	auctionsCmd.AddCommand(auctionsDeleteCmd)
	auctionsCmd.AddCommand(auctionsBidsCmd)
	auctionsCmd.AddCommand(auctionsStatsCmd)

	rootCmd.AddCommand(auctionsCmd)
}
