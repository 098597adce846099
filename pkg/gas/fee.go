package gas

import (
	"funding-quotes/pkg/safemath"
	"funding-quotes/pkg/types"
)

// SelectSuggestions normalizes either oracle shape into one row per speed.
// Legacy prices arrive in gwei and are converted to wei.
func SelectSuggestions(resp *types.MeteorologyResponse) types.GasSuggestions {
	if resp == nil {
		return nil
	}

	switch {
	case resp.Legacy != nil:
		legacy := func(gwei string) *types.GasSettings {
			return &types.GasSettings{GasPrice: safemath.GweiToWei(gwei)}
		}
		return types.GasSuggestions{
			types.GasSpeedCustom: nil,
			types.GasSpeedUrgent: legacy(resp.Legacy.FastGasPrice),
			types.GasSpeedFast:   legacy(resp.Legacy.ProposeGasPrice),
			types.GasSpeedNormal: legacy(resp.Legacy.SafeGasPrice),
		}

	case resp.EIP1559 != nil:
		base := resp.EIP1559.BaseFeeSuggestion
		eip := func(priority string) *types.GasSettings {
			return &types.GasSettings{IsEIP1559: true, MaxBaseFee: base, MaxPriorityFee: priority}
		}
		tips := resp.EIP1559.MaxPriorityFeeSuggestions
		return types.GasSuggestions{
			types.GasSpeedCustom: nil,
			types.GasSpeedUrgent: eip(tips.Urgent),
			types.GasSpeedFast:   eip(tips.Fast),
			types.GasSpeedNormal: eip(tips.Normal),
		}
	}

	return nil
}

// CalculateFee returns gasLimit times the per-gas price of settings, in wei
func CalculateFee(settings *types.GasSettings, gasLimit string) string {
	if settings == nil || gasLimit == "" {
		return "0"
	}
	if settings.IsEIP1559 {
		perGas := safemath.Add(settings.MaxBaseFee, settings.MaxPriorityFee)
		return safemath.Mul(gasLimit, perGas)
	}
	return safemath.Mul(gasLimit, settings.GasPrice)
}
