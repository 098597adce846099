package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"funding-quotes/pkg/funding"
	"funding-quotes/pkg/metrics"
	"funding-quotes/pkg/parser"
	"funding-quotes/pkg/store"
	"funding-quotes/pkg/types"
)

var (
	depositAsset     string
	depositBalance   string
	depositSymbol    string
	depositDecimals  int
	depositPrice     float64
	depositGasSpeed  string
	depositRecipient string
	depositWatch     bool
	depositInterval  int
	depositTimeout   time.Duration
)

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Quote a deposit into the configured target",
	Long: `Quote depositing an asset you hold into the configured deposit target.

The asset is given as <chain>:<address>, where the address may be "native".
Same-token deposits on the target chain are quoted as direct transfers, other
tokens on the target chain as swaps, and assets on other chains as bridges.

Examples:
  funding-quotes deposit 100 --asset base:0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913 --decimals 6 --balance 250
  funding-quotes deposit 0.25 --asset arbitrum:native --balance 1 --gas-speed urgent
  funding-quotes deposit 0.25 --asset mainnet:native --balance 1 --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runDeposit,
}

func init() {
	rootCmd.AddCommand(depositCmd)

	depositCmd.Flags().StringVar(&depositAsset, "asset", "", "Asset to deposit as <chain>:<address> (REQUIRED)")
	depositCmd.Flags().StringVar(&depositBalance, "balance", "", "Your balance of the asset (REQUIRED)")
	depositCmd.Flags().StringVar(&depositSymbol, "symbol", "", "Asset symbol (defaults to the chain's native symbol)")
	depositCmd.Flags().IntVar(&depositDecimals, "decimals", 18, "Asset decimals")
	depositCmd.Flags().Float64Var(&depositPrice, "price", 0, "Asset price in the display currency")
	depositCmd.Flags().StringVar(&depositGasSpeed, "gas-speed", "fast", "Gas speed: normal, fast or urgent")
	depositCmd.Flags().StringVar(&depositRecipient, "recipient", "", "Recipient on the target chain (overrides config)")
	depositCmd.Flags().BoolVarP(&depositWatch, "watch", "w", false, "Keep quoting until interrupted")
	depositCmd.Flags().IntVar(&depositInterval, "interval", 15, "Seconds between quote refreshes (when watching)")
	depositCmd.Flags().DurationVar(&depositTimeout, "timeout", 30*time.Second, "How long to wait for quotes")
	_ = depositCmd.MarkFlagRequired("asset")
	_ = depositCmd.MarkFlagRequired("balance")
}

// depositSummary is what the deposit command prints
type depositSummary struct {
	FlowID           string                  `json:"flowId"`
	Asset            *types.Asset            `json:"asset"`
	Amount           string                  `json:"amount"`
	Target           string                  `json:"target"`
	Quote            *types.QuoteResult      `json:"quote"`
	Strategy         funding.Strategy        `json:"strategy,omitempty"`
	AmountToReceive  funding.AmountToReceive `json:"amountToReceive"`
	EstimatedFee     string                  `json:"estimatedFee,omitempty"`
	MaxSwappable     string                  `json:"maxSwappable,omitempty"`
	RecipientMatches bool                    `json:"recipientMatches"`
}

func runDeposit(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	amount, err := parser.ParseAmount(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	balance, err := parser.ParseAmount(depositBalance)
	if err != nil {
		printError(fmt.Errorf("balance: %w", err))
		os.Exit(1)
	}
	ref, err := parser.ParseAssetRef(depositAsset)
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
	if err := a.requireAccount(); err != nil {
		printError(err)
		os.Exit(1)
	}

	asset := newDepositAsset(ref, balance)
	flow, err := funding.NewDepositFlow(a.depositConfig(depositRecipient), a.env(), asset)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer flow.Close()

	flow.Deposit.SetGasSpeed(types.ParseGasSpeed(depositGasSpeed))
	flow.Amount.SetAmount(amount)

	if depositWatch {
		if jsonOutput {
			fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
			os.Exit(1)
		}
		watchDeposit(ctx, a.cfg.MetricsAddr, a.logger, flow)
		return
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote and gas estimate..."
		s.Start()
	}
	waitCtx, cancel := context.WithTimeout(ctx, depositTimeout)
	err = settleDeposit(waitCtx, flow)
	cancel()
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	summary := summarizeDeposit(flow, asset)
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayDeposit(summary)
}

func newDepositAsset(ref *parser.AssetRef, balance string) *types.Asset {
	decimals := depositDecimals
	symbol := depositSymbol
	if types.IsNativeAsset(ref.Address, ref.ChainID) {
		if symbol == "" {
			symbol = ref.ChainID.NativeSymbol()
		}
		decimals = 18
		if ref.ChainID == types.ChainSolana {
			decimals = 9
		}
	}
	if symbol == "" {
		symbol = "TOKEN"
	}

	asset := types.NewAsset(ref.Address, ref.ChainID, symbol, decimals, balance)
	if depositPrice > 0 {
		asset.Price = &types.Price{Value: depositPrice}
	}
	return asset
}

// settleDeposit waits for the quote and then for the gas estimate the quote enables
func settleDeposit(ctx context.Context, flow *funding.DepositFlow) error {
	if _, err := flow.Quote.Await(ctx); err != nil {
		return fmt.Errorf("quote: %w", err)
	}
	if _, err := flow.NativeAsset.Await(ctx); err != nil {
		return fmt.Errorf("native asset: %w", err)
	}
	if _, err := flow.Gas.Meteorology.Await(ctx); err != nil {
		return fmt.Errorf("gas prices: %w", err)
	}
	if flow.Gas.GasLimit.Enabled() {
		if _, err := flow.Gas.GasLimit.Await(ctx); err != nil {
			return fmt.Errorf("gas limit: %w", err)
		}
	}
	return nil
}

func summarizeDeposit(flow *funding.DepositFlow, asset *types.Asset) depositSummary {
	cfg := flow.Config
	return depositSummary{
		FlowID:           flow.ID.String(),
		Asset:            asset,
		Amount:           flow.Amount.Amount(),
		Target:           fmt.Sprintf("%s on %s", cfg.To.Token.Symbol, cfg.To.ChainID.Name()),
		Quote:            flow.Quote.Get(),
		Strategy:         flow.Strategy(),
		AmountToReceive:  flow.AmountToReceive.Get(),
		EstimatedFee:     flow.Gas.EstimatedFee.Get(),
		MaxSwappable:     flow.Gas.MaxSwappable.Get(),
		RecipientMatches: flow.RecipientMatches(),
	}
}

func displayDeposit(s depositSummary) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        DEPOSIT QUOTE")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Deposit:         %s %s on %s\n", s.Amount, color.YellowString(s.Asset.Symbol), s.Asset.ChainID.Name())
	fmt.Printf("  Into:            %s\n", s.Target)

	if !s.Quote.IsValid() {
		status := "no quote"
		if s.Quote != nil {
			status = string(s.Quote.Status)
		}
		fmt.Printf("  Status:          %s\n", getColoredQuoteStatus(status))
		if s.MaxSwappable != "" {
			fmt.Printf("  Max Amount:      %s %s\n", s.MaxSwappable, s.Asset.Symbol)
		}
		fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
		return
	}

	q := s.Quote.Quote
	fmt.Printf("  Strategy:        %s\n", color.CyanString(string(s.Strategy)))
	fmt.Printf("  Source:          %s\n", q.Source)
	fmt.Printf("  You Receive:     %s\n", color.GreenString(s.AmountToReceive.FormattedAmount))
	if s.EstimatedFee != "" {
		fmt.Printf("  Network Fee:     %s\n", s.EstimatedFee)
	}
	if s.MaxSwappable != "" {
		fmt.Printf("  Max Amount:      %s %s\n", s.MaxSwappable, s.Asset.Symbol)
	}
	if q.DepositAddress != "" {
		fmt.Printf("  Deposit Address: %s\n", color.CyanString(q.DepositAddress))
	}
	if q.TimeEstimateSeconds > 0 {
		fmt.Printf("  Time Estimate:   ~%.0f seconds\n", q.TimeEstimateSeconds)
	}
	if !s.RecipientMatches {
		color.Red("\n  Warning: the quote does not pay out to the configured recipient")
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredQuoteStatus(status string) string {
	switch types.QuoteStatus(status) {
	case types.QuoteStatusSuccess:
		return color.GreenString(status)
	case types.QuoteStatusPending:
		return color.YellowString(status)
	case types.QuoteStatusInsufficientBalance, types.QuoteStatusInsufficientGas, types.QuoteStatusError:
		return color.RedString(status)
	default:
		return status
	}
}

// watchDeposit re-quotes when the cached quote goes stale and prints every
// change of the received amount or fee until interrupted
func watchDeposit(ctx context.Context, metricsAddr string, log *zap.Logger, flow *funding.DepositFlow) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	metrics.Serve(ctx, metricsAddr, log)

	fmt.Printf("\nWatching deposit quote (flow %s)\n", color.CyanString(flow.ID.String()))
	fmt.Printf("Refreshing every %d seconds. Press Ctrl+C to stop.\n\n", depositInterval)

	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
	unwatch := store.Combine(flow.AmountToReceive, flow.Gas.EstimatedFee).Watch(notify)
	defer unwatch()

	ticker := time.NewTicker(time.Duration(depositInterval) * time.Second)
	defer ticker.Stop()

	last := ""
	show := func() {
		r := flow.AmountToReceive.Get()
		line := fmt.Sprintf("receive %s (%s)", r.FormattedAmount, r.Status)
		if fee := flow.Gas.EstimatedFee.Get(); fee != "" {
			line += ", fee " + fee
		}
		if line != last {
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), line)
			last = line
		}
	}
	show()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-changes:
			show()
		case <-ticker.C:
			if _, err := flow.Quote.Fetch(ctx, store.FetchOptions{}); err != nil && ctx.Err() == nil {
				color.Red("Error: %v", err)
			}
		}
	}
}
