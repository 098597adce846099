package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"funding-quotes/pkg/client"
	"funding-quotes/pkg/types"
)

var (
	filterChain  string
	filterSymbol string
)

var bridgeTokensCmd = &cobra.Command{
	Use:     "bridge-tokens",
	Aliases: []string{"tokens"},
	Short:   "List tokens the 1Click bridge can quote",
	Long: `List the tokens 1Click can bridge, which is what the "oneclick" quote source
can deposit from or withdraw into. Requires a 1Click JWT.

Examples:
  funding-quotes bridge-tokens
  funding-quotes bridge-tokens --chain base
  funding-quotes bridge-tokens --symbol USDC`,
	Run: runBridgeTokens,
}

func init() {
	rootCmd.AddCommand(bridgeTokensCmd)

	bridgeTokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain id or name")
	bridgeTokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runBridgeTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	var blockchain string
	if filterChain != "" {
		chainID, err := types.ParseChainID(filterChain)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		name, ok := client.OneClickBlockchain(chainID)
		if !ok {
			printError(fmt.Errorf("1Click does not bridge %s", chainID.Name()))
			os.Exit(1)
		}
		blockchain = name
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()
	if a.oneClick == nil {
		printError(fmt.Errorf("JWT token not found. Please set FUNDING_QUOTES_JWT_TOKEN"))
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching bridgeable tokens..."
		s.Start()
	}
	tokens, err := a.oneClick.GetSupportedTokens(ctx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var filtered []oneclick.TokenResponse
	for _, token := range tokens {
		if blockchain != "" && !strings.EqualFold(token.GetBlockchain(), blockchain) {
			continue
		}
		if filterSymbol != "" && !strings.Contains(strings.ToUpper(token.GetSymbol()), strings.ToUpper(filterSymbol)) {
			continue
		}
		filtered = append(filtered, token)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayBridgeTokens(filtered)
}

func displayBridgeTokens(tokens []oneclick.TokenResponse) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            BRIDGEABLE TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	byChain := make(map[string][]oneclick.TokenResponse)
	for _, token := range tokens {
		byChain[token.GetBlockchain()] = append(byChain[token.GetBlockchain()], token)
	}
	chains := make([]string, 0, len(byChain))
	for chain := range byChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	for _, chain := range chains {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		for _, token := range byChain[chain] {
			address := token.GetContractAddress()
			if address == "" {
				address = "native"
			}
			if len(address) > 40 {
				address = address[:37] + "..."
			}
			fmt.Printf("  %-10s  %2.0f decimals  %s\n",
				color.YellowString(token.GetSymbol()),
				float64(token.GetDecimals()),
				color.HiBlackString(address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d blockchains\n\n", len(tokens), len(chains))
}
