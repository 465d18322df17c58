// Package cmd wires the CLI surface: the root command opens the chat screen,
// subcommands handle auth, onboarding, threads and configuration.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sahabat/auth"
	"sahabat/backend"
	"sahabat/chat"
	"sahabat/chatapi"
	"sahabat/config"
	"sahabat/logger"
	"sahabat/tui"
)

var (
	audioPath string
	newThread bool
)

// app bundles the wired-up clients every command needs.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	auth    *auth.Client
	chatAPI *chatapi.Client
	db      *backend.Client
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.LogFile)

	authClient, err := auth.NewClient(cfg.AuthURL, cfg.AnonKey, auth.NewStore())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		auth:    authClient,
		chatAPI: chatapi.NewClient(cfg.ChatAPIURL, authClient),
		db:      backend.NewClient(cfg.AuthURL, cfg.AnonKey, authClient),
	}, nil
}

func requireSession(a *app) error {
	if a.auth.CurrentSession() == nil {
		return fmt.Errorf("not signed in; run 'sahabat login' first")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "sahabat",
	Short: "Sahabat is a terminal companion for Amartha partners",
	Long: `Sahabat is a terminal companion app for Amartha partners.
It opens a conversation with the Sahabat assistant and helps you find
the product that fits: Modal, Celengan or AmarthaLink.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		if err := requireSession(a); err != nil {
			return err
		}

		session := chat.NewSession(a.chatAPI, a.log)
		if newThread {
			session.NewThread()
		}

		if err := tui.RunChat(session, audioPath); err != nil {
			return fmt.Errorf("failed to run chat: %w", err)
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&audioPath, "audio", "a", "", "Attach an audio file to the first message")
	rootCmd.Flags().BoolVarP(&newThread, "new", "n", false, "Start a fresh conversation")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(logoutCmd)
}
