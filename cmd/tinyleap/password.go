package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/tinyleap/internal/credential"
	"github.com/hyperengineering/tinyleap/internal/store"
)

var (
	newPassword string
	oldPassword string
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage the workshop password",
}

var passwordStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a password is set",
	Args:  cobra.NoArgs,
	RunE:  runPasswordStatus,
}

var passwordSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set or change the workshop password",
	Long:  "Set the workshop password. Changing an existing password requires --old.",
	Args:  cobra.NoArgs,
	RunE:  runPasswordSet,
}

func init() {
	passwordSetCmd.Flags().StringVar(&newPassword, "password", "", "New password")
	passwordSetCmd.Flags().StringVar(&oldPassword, "old", "", "Current password")
	passwordSetCmd.MarkFlagRequired("password")

	passwordCmd.AddCommand(passwordStatusCmd)
	passwordCmd.AddCommand(passwordSetCmd)
}

func runPasswordStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(db store.Store) error {
		set, err := credential.NewService(db, 0).Status(ctx)
		if err != nil {
			return err
		}
		if set {
			fmt.Fprintln(cmd.OutOrStdout(), "Password is set.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Password is not set.")
		}
		return nil
	})
}

func runPasswordSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(db store.Store) error {
		if err := credential.NewService(db, 0).Set(ctx, newPassword, oldPassword); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password updated.")
		return nil
	})
}
