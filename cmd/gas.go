package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"funding-quotes/pkg/gas"
	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/types"
)

var (
	gasChain string
	gasLimit string
)

var gasCmd = &cobra.Command{
	Use:   "gas",
	Short: "Show gas price suggestions for a chain",
	Long: `Show the gas oracle's suggestions for each speed, and the fee of a swap at
each speed.

Examples:
  funding-quotes gas --chain mainnet
  funding-quotes gas --chain base --limit 350000`,
	Run: runGas,
}

func init() {
	rootCmd.AddCommand(gasCmd)

	gasCmd.Flags().StringVar(&gasChain, "chain", "mainnet", "Chain to query")
	gasCmd.Flags().StringVar(&gasLimit, "limit", "", "Gas limit to price (defaults to the chain's reference swap limit)")
}

type gasRow struct {
	Speed    types.GasSpeed     `json:"speed"`
	Settings *types.GasSettings `json:"settings"`
	FeeWei   string             `json:"feeWei"`
}

func runGas(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	chainID, err := types.ParseChainID(gasChain)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	limit := gasLimit
	if limit == "" {
		limit = a.estimator.Units().SwapLimit(chainID, false)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching gas prices..."
		s.Start()
	}
	resp, err := a.meteorology.GetData(ctx, chainID)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	suggestions := gas.SelectSuggestions(resp)
	var rows []gasRow
	for _, speed := range []types.GasSpeed{types.GasSpeedNormal, types.GasSpeedFast, types.GasSpeedUrgent} {
		settings := suggestions[speed]
		if settings == nil {
			continue
		}
		rows = append(rows, gasRow{Speed: speed, Settings: settings, FeeWei: gas.CalculateFee(settings, limit)})
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                    GAS PRICES ON %s", strings.ToUpper(chainID.Name()))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  Gas limit: %s\n\n", limit)

	for _, row := range rows {
		price := row.Settings.GasPrice
		if row.Settings.IsEIP1559 {
			price = safemath.Add(row.Settings.MaxBaseFee, row.Settings.MaxPriorityFee)
		}
		fmt.Printf("  %-8s  %12s Gwei  fee %s %s\n",
			color.YellowString(string(row.Speed)),
			safemath.FormatNumber(safemath.WeiToGwei(price), 2),
			safemath.FormatNumber(safemath.FromRaw(row.FeeWei, 18), 6),
			chainID.NativeSymbol())
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
