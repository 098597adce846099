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

	"funding-quotes/pkg/funding"
	"funding-quotes/pkg/parser"
	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/types"
)

var (
	withdrawChain   string
	withdrawBalance string
	withdrawTimeout time.Duration
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Quote a withdrawal to a destination chain",
	Long: `Quote withdrawing funds along the configured route to the chain you pick.

The selected chain is remembered between runs when the route persists it.
Withdrawing into the same token on the source chain needs no quote.

Examples:
  funding-quotes withdraw 50 --balance 120
  funding-quotes withdraw 50 --balance 120 --chain base`,
	Args: cobra.ExactArgs(1),
	Run:  runWithdraw,
}

func init() {
	rootCmd.AddCommand(withdrawCmd)

	withdrawCmd.Flags().StringVar(&withdrawChain, "chain", "", "Destination chain (defaults to the remembered or configured chain)")
	withdrawCmd.Flags().StringVar(&withdrawBalance, "balance", "", "Withdrawable balance (REQUIRED)")
	withdrawCmd.Flags().DurationVar(&withdrawTimeout, "timeout", 30*time.Second, "How long to wait for quotes")
	_ = withdrawCmd.MarkFlagRequired("balance")
}

// withdrawalSummary is what the withdraw command prints
type withdrawalSummary struct {
	FlowID          string                  `json:"flowId"`
	Amount          string                  `json:"amount"`
	FromChain       types.ChainID           `json:"fromChainId"`
	ToChain         types.ChainID           `json:"toChainId"`
	BuyToken        string                  `json:"buyTokenAddress"`
	Requirement     funding.SwapRequirement `json:"swapRequirement"`
	Quote           *types.QuoteResult      `json:"quote"`
	AmountToReceive string                  `json:"amountToReceive,omitempty"`
}

func runWithdraw(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	amount, err := parser.ParseAmount(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	balance, err := parser.ParseAmount(withdrawBalance)
	if err != nil {
		printError(fmt.Errorf("balance: %w", err))
		os.Exit(1)
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()
	if err := a.requireAccount(); err != nil {
		printError(err)
		os.Exit(1)
	}

	cfg := a.withdrawalConfig(balance)
	flow, err := funding.NewWithdrawalFlow(ctx, cfg, a.env())
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer func() {
		if err := flow.Close(ctx); err != nil {
			color.Red("Warning: failed to save selected chain: %v", err)
		}
	}()

	if withdrawChain != "" {
		chainID, err := types.ParseChainID(withdrawChain)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if chainID != flow.Withdrawal.SelectedChainID() && !flow.Withdrawal.SetSelectedChainID(chainID) {
			printError(fmt.Errorf("withdrawals to %s are not allowed", chainID.Name()))
			os.Exit(1)
		}
	}
	flow.Amount.SetAmount(amount)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching withdrawal quote..."
		s.Start()
	}
	waitCtx, cancel := context.WithTimeout(ctx, withdrawTimeout)
	_, err = flow.Token.Await(waitCtx)
	if err == nil {
		_, err = flow.Quote.Await(waitCtx)
	}
	cancel()
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	summary := withdrawalSummary{
		FlowID:      flow.ID.String(),
		Amount:      flow.Amount.Amount(),
		FromChain:   cfg.Route.From.ChainID,
		ToChain:     flow.Withdrawal.SelectedChainID(),
		BuyToken:    flow.BuyToken.Get(),
		Requirement: flow.SwapRequirement(),
		Quote:       flow.Quote.Get(),
	}
	if r := summary.Quote; r.IsValid() {
		if network := flow.Token.Get().Network(summary.ToChain); network != nil {
			summary.AmountToReceive = safemath.TrimTrailingZeros(safemath.FromRaw(r.Quote.BuyAmount, network.Decimals))
		}
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayWithdrawal(summary, cfg)
}

func displayWithdrawal(s withdrawalSummary, cfg *funding.WithdrawalConfig) {
	route := cfg.Route
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                       WITHDRAWAL QUOTE")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Withdraw:        %s %s from %s\n", safemath.FormatNumber(s.Amount, int32(cfg.AmountDecimals)), color.YellowString(route.From.Token.Symbol), s.FromChain.Name())
	fmt.Printf("  To:              %s on %s\n", route.To.Token.Symbol, color.CyanString(s.ToChain.Name()))

	switch {
	case s.BuyToken == "":
		color.Red("  %s is not available on %s", route.To.Token.Symbol, s.ToChain.Name())
	case s.Requirement == funding.SwapNone:
		fmt.Printf("  Route:           %s\n", color.GreenString("direct withdrawal, no swap needed"))
	case !s.Quote.IsValid():
		status := "no quote"
		if s.Quote != nil {
			status = string(s.Quote.Status)
		}
		fmt.Printf("  Route:           %s\n", s.Requirement)
		fmt.Printf("  Status:          %s\n", getColoredQuoteStatus(status))
	default:
		fmt.Printf("  Route:           %s via %s\n", s.Requirement, s.Quote.Quote.Source)
		fmt.Printf("  You Receive:     %s\n", color.GreenString(s.AmountToReceive))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
