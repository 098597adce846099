package types

// Source names the liquidity source a quote is requested from
type Source string

const (
	SourceAggregator Source = "rainbow"
	SourceRelay      Source = "relay"
	SourceOneClick   Source = "oneclick"
	SourceTransfer   Source = "transfer"
)

// QuoteParams is the request body shared by same-chain and cross-chain quotes
type QuoteParams struct {
	ChainID                  ChainID `json:"chainId"`
	ToChainID                ChainID `json:"toChainId,omitempty"`
	FromAddress              string  `json:"fromAddress"`
	Receiver                 string  `json:"receiver,omitempty"`
	SellTokenAddress         string  `json:"sellTokenAddress"`
	BuyTokenAddress          string  `json:"buyTokenAddress"`
	SellAmount               string  `json:"sellAmount"`
	Slippage                 float64 `json:"slippage"`
	FeePercentageBasisPoints int     `json:"feePercentageBasisPoints,omitempty"`
	Refuel                   bool    `json:"refuel,omitempty"`
	Source                   Source  `json:"source,omitempty"`
	Currency                 string  `json:"currency,omitempty"`
}

// IsCrosschain reports whether the params describe a bridge
func (p QuoteParams) IsCrosschain() bool {
	return p.ToChainID != 0 && p.ToChainID != p.ChainID
}

// Protocol is one leg of a same-chain route
type Protocol struct {
	Name string  `json:"name"`
	Part float64 `json:"part"`
}

// Route is one hop of a cross-chain quote
type Route struct {
	Source    string `json:"source"`
	Recipient string `json:"recipient,omitempty"`
}

// Quote is a same-chain swap or cross-chain bridge quote. Amounts are raw units.
type Quote struct {
	ChainID                  ChainID    `json:"chainId"`
	ToChainID                ChainID    `json:"toChainId,omitempty"`
	From                     string     `json:"from"`
	To                       string     `json:"to,omitempty"`
	Data                     string     `json:"data,omitempty"`
	Value                    string     `json:"value,omitempty"`
	SellTokenAddress         string     `json:"sellTokenAddress"`
	BuyTokenAddress          string     `json:"buyTokenAddress"`
	SellAmount               string     `json:"sellAmount"`
	BuyAmount                string     `json:"buyAmount"`
	BuyAmountMinusFees       string     `json:"buyAmountMinusFees,omitempty"`
	Fee                      string     `json:"fee"`
	FeePercentageBasisPoints int        `json:"feePercentageBasisPoints"`
	TradeAmountUSD           float64    `json:"tradeAmountUSD"`
	AllowanceTarget          string     `json:"allowanceTarget,omitempty"`
	AllowanceNeeded          bool       `json:"allowanceNeeded"`
	Protocols                []Protocol `json:"protocols,omitempty"`
	Routes                   []Route    `json:"routes,omitempty"`
	Recipient                string     `json:"recipient,omitempty"`
	Refuel                   bool       `json:"refuel,omitempty"`
	Source                   Source     `json:"source,omitempty"`
	DepositAddress           string     `json:"depositAddress,omitempty"`
	TimeEstimateSeconds      float64    `json:"timeEstimate,omitempty"`
}

// IsCrosschain reports whether the quote settles on a different chain
func (q *Quote) IsCrosschain() bool {
	return q != nil && q.ToChainID != 0 && q.ToChainID != q.ChainID
}

// QuoteStatus classifies a quote outcome that is not a usable quote
type QuoteStatus string

const (
	QuoteStatusError               QuoteStatus = "error"
	QuoteStatusInsufficientBalance QuoteStatus = "insufficientBalance"
	QuoteStatusInsufficientGas     QuoteStatus = "insufficientGas"
	QuoteStatusPending             QuoteStatus = "pending"
	QuoteStatusSuccess             QuoteStatus = "success"
	QuoteStatusZeroAmountError     QuoteStatus = "zeroAmountError"
)

// QuoteResult is either a quote or a sentinel status. A nil *QuoteResult
// means no quote could be attempted yet.
type QuoteResult struct {
	Quote  *Quote      `json:"quote,omitempty"`
	Status QuoteStatus `json:"status"`
}

// QuoteFound wraps a valid quote
func QuoteFound(q *Quote) *QuoteResult {
	return &QuoteResult{Quote: q, Status: QuoteStatusSuccess}
}

// QuoteSentinel wraps a failure status
func QuoteSentinel(status QuoteStatus) *QuoteResult {
	return &QuoteResult{Status: status}
}

// IsValid reports whether the result carries a usable quote
func (r *QuoteResult) IsValid() bool {
	return r != nil && r.Quote != nil && r.Status == QuoteStatusSuccess
}
