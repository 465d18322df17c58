package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sahabat/auth"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account with your phone number",
	Long: `Create a new account in three steps: enter your phone number,
verify the SMS code, then choose a six-digit PIN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		ctx := context.Background()
		reg := auth.NewRegistration(a.auth, a.cfg.OTPBypass)

		phone, err := promptLine("Nomor HP (+62): ")
		if err != nil {
			return err
		}
		if err := reg.Start(ctx, phone); err != nil {
			return fmt.Errorf("failed to send verification code: %w", err)
		}

		if a.cfg.OTPBypass {
			fmt.Println("Verifikasi SMS dilewati.")
			if err := reg.Verify(ctx, ""); err != nil {
				return err
			}
		} else {
			code, err := promptLine("Kode SMS: ")
			if err != nil {
				return err
			}
			if err := reg.Verify(ctx, code); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
		}

		pin, err := promptSecret("Buat PIN (6 digit): ")
		if err != nil {
			return err
		}
		confirm, err := promptSecret("Ulangi PIN: ")
		if err != nil {
			return err
		}
		if pin != confirm {
			return fmt.Errorf("PIN confirmation does not match")
		}

		session, err := reg.CreatePin(ctx, pin)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Printf("Akun dibuat, berhasil masuk sebagai %s\n", session.User.Phone)
		fmt.Println("Jalankan 'sahabat onboard' untuk menemukan produk yang cocok.")
		return nil
	},
}
