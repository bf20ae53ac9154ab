package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/MansiChugh28/auctionhouse"
	"github.com/spf13/cobra"
)

var (
	loginPassword string

	registerName     string
	registerUsername string
	registerPassword string
)

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (read from stdin if omitted)")
	registerCmd.Flags().StringVar(&registerName, "name", "", "Display name")
	registerCmd.Flags().StringVar(&registerUsername, "username", "", "Username")
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "Password (read from stdin if omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		password, err := passwordOrStdin(loginPassword, cmd.InOrStdin())
		if err != nil {
			return err
		}

		client, err := getClient(cfg, newLogger(), false)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		res, err := client.Auth().Login(ctx, args[0], password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := saveSession(cfg, res); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayName(res.User))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and store the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		password, err := passwordOrStdin(registerPassword, cmd.InOrStdin())
		if err != nil {
			return err
		}

		client, err := getClient(cfg, newLogger(), false)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext()
		defer cancel()

		res, err := client.Auth().Register(ctx, &auctionhouse.RegisterOptions{
			Name:                 registerName,
			Username:             registerUsername,
			Email:                args[0],
			Password:             password,
			PasswordConfirmation: password,
		})
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		if err := saveSession(cfg, res); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Registration successful!")
		fmt.Fprintf(cmd.OutOrStdout(), "  User ID:  %s\n", res.User.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Username: %s\n", displayName(res.User))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.Auth = ConfigAuth{}
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func saveSession(cfg *Config, res *auctionhouse.AuthResult) error {
	if res.Token == "" {
		return fmt.Errorf("server returned no token")
	}
	cfg.Auth = ConfigAuth{
		Token:    res.Token,
		UserID:   res.User.ID.String(),
		Username: res.User.Username,
		Email:    res.User.Email,
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func passwordOrStdin(flag string, in io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("cannot read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}

func displayName(u auctionhouse.User) string {
	switch {
	case u.Username != "":
		return u.Username
	case u.Name != "":
		return u.Name
	default:
		return u.Email
	}
}
