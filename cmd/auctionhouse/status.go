package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.AddCommand(balanceSetCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current configuration and account status",
	Long:  "Display the current configuration and, when logged in, fetch live account info.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Configuration:")
		fmt.Fprintf(out, "  Base URL:    %s\n", valueOrDefault(cfg.Default.BaseURL, "(default)"))
		fmt.Fprintf(out, "  Stream URL:  %s\n", valueOrDefault(cfg.Default.WSURL, "(derived from base URL)"))

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Auth:")
		if cfg.Auth.Token == "" {
			fmt.Fprintln(out, "  Token:       (not logged in)")
			return nil
		}
		fmt.Fprintf(out, "  Username:    %s\n", valueOrDefault(cfg.Auth.Username, "(unknown)"))
		fmt.Fprintf(out, "  Email:       %s\n", valueOrDefault(cfg.Auth.Email, "(unknown)"))
		fmt.Fprintf(out, "  Token:       %s\n", maskKey(cfg.Auth.Token))

		client, err := getClient(cfg, newLogger(), true)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Live status:")
		me, err := client.Auth().Me(ctx)
		if err != nil {
			fmt.Fprintf(out, "  Error: %v\n", apiError("fetch account", err))
			return nil
		}
		fmt.Fprintf(out, "  User ID:     %s\n", me.ID)
		fmt.Fprintf(out, "  Username:    %s\n", displayName(*me))
		if bal, err := client.Auth().Balance(ctx); err == nil {
			fmt.Fprintf(out, "  Balance:     %.2f\n", bal.Balance)
		}
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show your account balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		bal, err := client.Auth().Balance(ctx)
		if err != nil {
			return apiError("fetch balance", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", bal.Balance)
		return nil
	},
}

var balanceSetCmd = &cobra.Command{
	Use:   "set <amount>",
	Short: "Set your account balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil || amount < 0 {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		bal, err := client.Auth().UpdateBalance(ctx, amount)
		if err != nil {
			return apiError("update balance", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Balance: %.2f\n", bal.Balance)
		return nil
	},
}

// maskKey shows the first 6 and last 4 characters of a token.
func maskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:6] + "..." + key[len(key)-4:]
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
