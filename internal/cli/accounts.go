package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newAccountCmd creates the 'account' command group.
func newAccountCmd() *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations (list, balance, hpc)",
	}

	accountCmd.AddCommand(newAccountListCmd())
	accountCmd.AddCommand(newAccountBalanceCmd())
	accountCmd.AddCommand(newAccountHpcCmd())

	return accountCmd
}

// newAccountListCmd creates the 'account list' command.
func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts available to the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, profile, err := getAPIClient()
			if err != nil {
				return err
			}
			accounts, err := client.AccountList(GetContext())
			if err != nil {
				return err
			}
			for _, entry := range accounts {
				marker := " "
				if entry.Account.AccountID == profile.AccountID {
					marker = "*"
				}
				fmt.Printf("%s %-36s %s\n", marker, entry.Account.AccountID, entry.Account.AccountName)
			}
			return nil
		},
	}
}

// newAccountBalanceCmd creates the 'account balance' command.
func newAccountBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the core-hour balance of the active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, profile, err := getAPIClient()
			if err != nil {
				return err
			}
			if profile.AccountID == "" {
				return fmt.Errorf("no account selected, pass --account-id or re-run \"onscale configure\"")
			}
			balance, err := client.AccountBalance(GetContext(), profile.AccountID)
			if err != nil {
				return err
			}
			fmt.Printf("Account:    %s\n", profile.AccountID)
			fmt.Printf("Core-hours: %.2f of %.2f\n", balance.CoreHours, balance.MaxCoreHours)
			return nil
		},
	}
}

// newAccountHpcCmd creates the 'account hpc' command.
func newAccountHpcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hpc",
		Short: "List HPC clusters available to the active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, profile, err := getAPIClient()
			if err != nil {
				return err
			}
			if profile.AccountID == "" {
				return fmt.Errorf("no account selected, pass --account-id or re-run \"onscale configure\"")
			}
			clusters, err := client.HpcList(GetContext(), profile.AccountID)
			if err != nil {
				return err
			}
			for _, hpc := range clusters {
				state := "inactive"
				if hpc.Active {
					state = "active"
				}
				fmt.Printf("%-36s %-10s %-16s %-8s %s\n", hpc.HpcID, hpc.HpcCloud, hpc.HpcRegion, state, hpc.HpcDescription)
			}
			return nil
		},
	}
}
