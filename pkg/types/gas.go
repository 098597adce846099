package types

// GasSpeed selects a row of gas suggestions
type GasSpeed string

const (
	GasSpeedCustom GasSpeed = "custom"
	GasSpeedUrgent GasSpeed = "urgent"
	GasSpeedFast   GasSpeed = "fast"
	GasSpeedNormal GasSpeed = "normal"
)

// ParseGasSpeed maps a user string to a speed, defaulting to fast
func ParseGasSpeed(s string) GasSpeed {
	switch GasSpeed(s) {
	case GasSpeedCustom, GasSpeedUrgent, GasSpeedNormal:
		return GasSpeed(s)
	default:
		return GasSpeedFast
	}
}

// GasSettings are the fee parameters for one speed. Either GasPrice is set
// (legacy chains) or MaxBaseFee and MaxPriorityFee are (EIP-1559). Values are wei.
type GasSettings struct {
	IsEIP1559      bool   `json:"isEIP1559"`
	GasPrice       string `json:"gasPrice,omitempty"`
	MaxBaseFee     string `json:"maxBaseFee,omitempty"`
	MaxPriorityFee string `json:"maxPriorityFee,omitempty"`
}

// GasSuggestions maps each speed to its settings. The custom row is nil until
// the user edits it.
type GasSuggestions map[GasSpeed]*GasSettings

// MeteorologyLegacy is the legacy gas oracle shape, prices in gwei
type MeteorologyLegacy struct {
	FastGasPrice    string `json:"fastGasPrice"`
	ProposeGasPrice string `json:"proposeGasPrice"`
	SafeGasPrice    string `json:"safeGasPrice"`
}

// PriorityFeeSuggestions are the per-speed tips of an EIP-1559 oracle response, in wei
type PriorityFeeSuggestions struct {
	Normal string `json:"normal"`
	Fast   string `json:"fast"`
	Urgent string `json:"urgent"`
}

// MeteorologyEIP1559 is the EIP-1559 gas oracle shape, fees in wei
type MeteorologyEIP1559 struct {
	BaseFeeSuggestion         string                 `json:"baseFeeSuggestion"`
	CurrentBaseFee            string                 `json:"currentBaseFee"`
	MaxPriorityFeeSuggestions PriorityFeeSuggestions `json:"maxPriorityFeeSuggestions"`
	SecondsPerNewBlock        int64                  `json:"secondsPerNewBlock"`
}

// MeteorologyResponse holds exactly one of the two oracle shapes
type MeteorologyResponse struct {
	Legacy  *MeteorologyLegacy  `json:"legacy,omitempty"`
	EIP1559 *MeteorologyEIP1559 `json:"eip1559,omitempty"`
}
