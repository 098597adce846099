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
	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"funding-quotes/pkg/client"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <deposit-address>",
	Short: "Check the status of a 1Click bridge",
	Long: `Check the execution status of a deposit or withdrawal quoted through 1Click,
by the deposit address shown with the quote.

Examples:
  funding-quotes status 0x1234...abcd
  funding-quotes status 0x1234...abcd --watch
  funding-quotes status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	depositAddress := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx := context.Background()

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

	if watchStatus {
		watchSwapStatus(ctx, a.oneClick, depositAddress, jsonOutput)
	} else {
		checkSwapStatus(ctx, a.oneClick, depositAddress, jsonOutput)
	}
}

func checkSwapStatus(ctx context.Context, apiClient *client.OneClickClient, depositAddress string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking bridge status..."
		s.Start()
	}

	status, err := apiClient.GetSwapStatus(ctx, depositAddress)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(status, depositAddress)
	}
}

func watchSwapStatus(ctx context.Context, apiClient *client.OneClickClient, depositAddress string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Printf("\nWatching bridge status (Deposit Address: %s)\n", color.CyanString(depositAddress))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		if done := checkAndDisplayStatus(ctx, apiClient, depositAddress); done {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// checkAndDisplayStatus reports whether the bridge reached a final state
func checkAndDisplayStatus(ctx context.Context, apiClient *client.OneClickClient, depositAddress string) bool {
	status, err := apiClient.GetSwapStatus(ctx, depositAddress)
	if err != nil {
		if ctx.Err() == nil {
			color.Red("Error: %v", err)
		}
		return false
	}

	displayStatus(status, depositAddress)
	return isFinalStatus(status.GetStatus())
}

func isFinalStatus(status string) bool {
	switch strings.ToUpper(status) {
	case "SUCCESS", "FAILED", "REFUNDED":
		return true
	default:
		return false
	}
}

func displayStatus(status *oneclick.GetExecutionStatusResponse, depositAddress string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        BRIDGE STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Deposit Address: %s\n", color.CyanString(depositAddress))
	fmt.Printf("  Status:          %s\n", getColoredStatus(status.GetStatus()))
	fmt.Printf("  Last Updated:    %s\n", status.GetUpdatedAt().Format("2006-01-02 15:04:05"))

	details := status.GetSwapDetails()
	for _, tx := range details.GetOriginChainTxHashes() {
		printHash("Origin Tx:", tx.GetHash())
	}
	for _, tx := range details.GetDestinationChainTxHashes() {
		printHash("Destination Tx:", tx.GetHash())
	}

	if details.HasAmountInFormatted() {
		fmt.Printf("  Amount In:       %s\n", details.GetAmountInFormatted())
	}
	if details.HasAmountOutFormatted() {
		fmt.Printf("  Amount Out:      %s\n", details.GetAmountOutFormatted())
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func printHash(label, hash string) {
	if hash != "" {
		fmt.Printf("  %-16s %s\n", label, color.HiBlackString(hash))
	}
}

// getColoredStatus colors 1Click execution states by outcome
func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch {
	case status == "SUCCESS":
		return color.GreenString(status)
	case status == "FAILED" || status == "REFUNDED":
		return color.RedString(status)
	case status == "INCOMPLETE_DEPOSIT":
		return color.MagentaString(status)
	case strings.HasPrefix(status, "PENDING") || status == "PROCESSING" || status == "KNOWN_DEPOSIT_TX":
		return color.YellowString(status)
	default:
		return status
	}
}
