package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		if err := a.auth.SignOut(context.Background()); err != nil {
			return err
		}
		fmt.Println("Berhasil keluar.")
		return nil
	},
}
