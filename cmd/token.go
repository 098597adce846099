package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"funding-quotes/pkg/client"
	"funding-quotes/pkg/funding"
	"funding-quotes/pkg/types"
)

var (
	tokenChain   string
	tokenAddress string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Look up token metadata and price",
	Long: `Look up a token's metadata and price in the display currency. Without
--address the chain's native asset is shown.

Examples:
  funding-quotes token --chain base
  funding-quotes token --chain mainnet --address 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48`,
	Run: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenChain, "chain", "mainnet", "Chain of the token")
	tokenCmd.Flags().StringVar(&tokenAddress, "address", "", "Token address (defaults to the native asset)")
}

func runToken(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	chainID, err := types.ParseChainID(tokenChain)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	address := tokenAddress
	if address == "" {
		address = chainID.NativeAssetAddress()
	} else if err := types.ValidateAddress(address, chainID); err != nil {
		printError(err)
		os.Exit(1)
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching token..."
		s.Start()
	}
	token, err := a.metadata.ExternalToken(ctx, address, chainID, a.currency.Get())
	if !jsonOutput {
		s.Stop()
	}
	if errors.Is(err, client.ErrTokenNotFound) {
		printError(fmt.Errorf("token %s not found on %s", address, chainID.Name()))
		os.Exit(1)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	formatted := funding.FormatExternalAsset(token, address, chainID, a.nativeCurrency())
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(formatted, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayToken(formatted)
}

func displayToken(t *types.FormattedExternalAsset) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          TOKEN")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Name:            %s (%s)\n", t.Name, color.YellowString(t.Symbol))
	fmt.Printf("  Chain:           %s\n", t.ChainID.Name())
	fmt.Printf("  Address:         %s\n", color.HiBlackString(t.Address))
	fmt.Printf("  Decimals:        %d\n", t.Decimals)
	if t.NativePrice.Display != "" {
		change := t.Change
		if strings.HasPrefix(change, "-") {
			change = color.RedString(change)
		} else {
			change = color.GreenString(change)
		}
		fmt.Printf("  Price:           %s  %s\n", t.NativePrice.Display, change)
	}

	if len(t.Networks) > 0 {
		ids := make([]string, 0, len(t.Networks))
		for id := range t.Networks {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Println("\n  Networks:")
		for _, id := range ids {
			name := id
			if chainID, err := types.ParseChainID(id); err == nil {
				name = chainID.Name()
			}
			fmt.Printf("    %-12s %s\n", name, color.HiBlackString(t.Networks[id].Address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
