package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "funding-quotes",
	Short: "Quote deposits and withdrawals across chains",
	Long: `funding-quotes prices moving funds into and out of an account: it picks the
right quote source for the asset you hold, estimates gas, and shows what will
arrive on the other side.

Examples:
  funding-quotes deposit 100 --asset base:0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913 --balance 250 --decimals 6
  funding-quotes deposit 0.5 --asset arbitrum:native --balance 1.2 --watch
  funding-quotes withdraw 50 --chain base --balance 120
  funding-quotes gas --chain mainnet
  funding-quotes token --chain base
  funding-quotes status <deposit-address>`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("account", "", "Wallet address quotes are requested for (overrides config)")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}
