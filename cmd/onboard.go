package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sahabat/recommend"
	"sahabat/tui"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Answer a short questionnaire to find your product",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		if err := requireSession(a); err != nil {
			return err
		}
		userID := a.auth.CurrentSession().User.ID

		if previous, _, err := a.db.GetRecommendation(context.Background(), userID); err != nil {
			a.log.Warn("onboard", "failed to fetch saved recommendation", zap.Error(err))
		} else if previous != "" {
			fmt.Printf("Hasil sebelumnya: %s. Mengulang kuesioner.\n", previous)
		}

		// The result is shown regardless of whether persisting it works.
		save := func(product recommend.Product, answers recommend.AnswerSet) error {
			ctx := context.Background()
			if err := a.db.SaveRecommendation(ctx, userID, product, answers); err != nil {
				a.log.Warn("onboard", "failed to save recommendation", zap.Error(err))
				return err
			}
			if err := a.auth.UpdateMetadata(ctx, map[string]interface{}{
				"recommendation":       string(product),
				"onboarding_completed": true,
			}); err != nil {
				a.log.Warn("onboard", "failed to update user metadata", zap.Error(err))
			}
			return nil
		}

		product, err := tui.RunOnboarding(save)
		if err != nil {
			return fmt.Errorf("failed to run onboarding: %w", err)
		}
		if product == "" {
			fmt.Println("Onboarding dibatalkan.")
			return nil
		}

		fmt.Printf("Produk untuk anda: %s\n", product)
		return nil
	},
}
