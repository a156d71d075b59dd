package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/onscale/onscale-go/internal/api"
	"github.com/onscale/onscale-go/internal/auth"
	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/logging"
)

// newConfigureCmd creates the 'configure' command group.
func newConfigureCmd() *cobra.Command {
	configureCmd := newConfigureLoginCmd()
	configureCmd.AddCommand(newConfigureListCmd())
	configureCmd.AddCommand(newConfigureDefaultCmd())
	configureCmd.AddCommand(newConfigureDeleteCmd())
	return configureCmd
}

// newConfigureLoginCmd creates the 'configure' command itself: interactive
// login that saves a profile.
func newConfigureLoginCmd() *cobra.Command {
	var alias string
	var portal string

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Log in and save a profile",
		Long: `Log in with your OnScale credentials and save the resulting token as a
named profile in ` + "`~/.config/onscale/profiles`" + `.

The first profile saved becomes the default. Pass --name to keep several
logins side by side and select one later with --profile.

Example:
  onscale configure
  onscale configure --name staging --portal test`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.Global()
			ctx := GetContext()

			reader := bufio.NewReader(os.Stdin)

			if portal == "" {
				fmt.Print("Portal [prod]: ")
				input, _ := reader.ReadString('\n')
				portal = strings.TrimSpace(input)
				if portal == "" {
					portal = "prod"
				}
			}

			var userName string
			for userName == "" {
				fmt.Print("User name (email): ")
				input, _ := reader.ReadString('\n')
				userName = strings.TrimSpace(input)
			}

			fmt.Print("Password: ")
			password, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			authenticator, err := auth.NewAuthenticator(ctx, portal)
			if err != nil {
				return err
			}
			tokens, err := authenticator.Login(ctx, userName, string(password))
			if err != nil {
				return err
			}
			log.Info().Str("user", userName).Str("portal", portal).Msg("logged in")

			// The account choice is saved with the profile so job
			// commands do not need --account-id every time.
			client, err := api.NewClient(portal, tokens.IDToken, settingsFromFlags())
			if err != nil {
				return err
			}
			accounts, err := client.AccountList(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			var accountID string
			switch len(accounts) {
			case 0:
			case 1:
				accountID = accounts[0].Account.AccountID
				fmt.Printf("Using account %s (%s)\n", accounts[0].Account.AccountName, accountID)
			default:
				fmt.Println("Available accounts:")
				for i, entry := range accounts {
					fmt.Printf("  %d. %s (%s)\n", i+1, entry.Account.AccountName, entry.Account.AccountID)
				}
				fmt.Printf("Choose [1-%d]: ", len(accounts))
				input, _ := reader.ReadString('\n')
				var choice int
				if _, err := fmt.Sscanf(strings.TrimSpace(input), "%d", &choice); err != nil || choice < 1 || choice > len(accounts) {
					return fmt.Errorf("invalid account choice")
				}
				accountID = accounts[choice-1].Account.AccountID
			}

			store, err := config.LoadDefaultStore()
			if err != nil {
				return err
			}
			profile := &config.Profile{
				Alias:     alias,
				Portal:    portal,
				UserName:  userName,
				Token:     tokens.IDToken,
				AccountID: accountID,
			}
			if err := store.SetProfile(profile); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}

			path, _ := config.DefaultProfilePath()
			fmt.Printf("Profile %q saved to %s\n", alias, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&alias, "name", "default", "Profile name")
	cmd.Flags().StringVar(&portal, "portal", "", "Portal name (prompted when omitted)")

	return cmd
}

// newConfigureListCmd creates the 'configure list' command.
func newConfigureListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.LoadDefaultStore()
			if err != nil {
				return err
			}
			aliases := store.Aliases()
			if len(aliases) == 0 {
				fmt.Println("No profiles saved. Run \"onscale configure\" to log in.")
				return nil
			}
			defaultAlias := store.DefaultAlias()
			for _, alias := range aliases {
				profile, err := store.Profile(alias)
				if err != nil {
					return err
				}
				marker := " "
				if alias == defaultAlias {
					marker = "*"
				}
				fmt.Printf("%s %-16s portal=%s user=%s\n", marker, alias, profile.Portal, profile.UserName)
			}
			return nil
		},
	}
}

// newConfigureDefaultCmd creates the 'configure default' command.
func newConfigureDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <profile>",
		Short: "Set the default profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.LoadDefaultStore()
			if err != nil {
				return err
			}
			if _, err := store.Profile(args[0]); err != nil {
				return err
			}
			store.SetDefaultAlias(args[0])
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Printf("Default profile set to %q\n", args[0])
			return nil
		},
	}
}

// newConfigureDeleteCmd creates the 'configure delete' command.
func newConfigureDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <profile>",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.LoadDefaultStore()
			if err != nil {
				return err
			}
			if err := store.DeleteProfile(args[0]); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Printf("Profile %q deleted\n", args[0])
			return nil
		},
	}
}
