package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your phone number and PIN",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		phone, err := promptLine("Nomor HP (+62): ")
		if err != nil {
			return err
		}
		pin, err := promptSecret("PIN: ")
		if err != nil {
			return err
		}

		session, err := a.auth.SignIn(context.Background(), phone, pin)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Printf("Berhasil masuk sebagai %s\n", session.User.Phone)
		return nil
	},
}

// promptLine reads one trimmed line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a line without echoing it.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
