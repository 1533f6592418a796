package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "entitlements-service",
	Short: "Transactional entitlement ledger service",
	Long:  "Payment orders, signed gateway callbacks, points ledger and membership subscriptions.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
