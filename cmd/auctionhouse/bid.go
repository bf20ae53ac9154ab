package main

import (
	"fmt"

	"github.com/MansiChugh28/auctionhouse"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(bidCmd)
}

var bidCmd = &cobra.Command{
	Use:   "bid <auction-id> <amount>",
	Short: "Place a bid on an auction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		bid, err := client.Auctions().PlaceBid(ctx, auctionhouse.ID(args[0]), amount)
		if err != nil {
			return apiError("bid rejected", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Bid of %.2f placed on auction %s\n", bid.Amount, args[0])
		return nil
	},
}
