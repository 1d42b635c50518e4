package guardian

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"unicode"

	xerrors "NovaWallet/internal/errors"
	"NovaWallet/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rawRecipient = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	sender       = "0x1111111111111111111111111111111111111111"
	zeroAddress  = "0x0000000000000000000000000000000000000000"
	gasEstimate  = 0.00021
)

var recipient = common.HexToAddress(rawRecipient).Hex()

func newGuardian() *Guardian {
	return New(NewRules(web3.DefaultCatalogue()), WithAuditLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func f(v float64) *float64 { return &v }

func TestValidateAddressFormat(t *testing.T) {
	rules := NewRules(web3.DefaultCatalogue())

	for _, bad := range []string{"", "   ", "0x123", strings.TrimPrefix(recipient, "0x"), "0x" + strings.Repeat("g", 40)} {
		res := rules.ValidateAddress(bad, 1)
		assert.False(t, res.Valid, bad)
		assert.Len(t, res.Issues, 1, bad)
	}

	zero := rules.ValidateAddress(zeroAddress, 1)
	assert.False(t, zero.Valid)
	assert.Contains(t, zero.Issues[0], "Alamat nol")
	assert.Empty(t, zero.Warnings)
}

func TestValidateAddressChecksumWording(t *testing.T) {
	rules := NewRules(web3.DefaultCatalogue())

	lower := rules.ValidateAddress(strings.ToLower(recipient), 1)
	require.True(t, lower.Valid)
	require.Len(t, lower.Warnings, 1)
	assert.Contains(t, lower.Warnings[0], "lowercase")
	assert.Contains(t, lower.Warnings[0], recipient)
	assert.Len(t, lower.Recommendations, 1)

	upper := rules.ValidateAddress("0x"+strings.ToUpper(recipient[2:]), 1)
	require.True(t, upper.Valid)
	require.Len(t, upper.Warnings, 1)
	assert.Contains(t, upper.Warnings[0], "uppercase")
	assert.Empty(t, upper.Recommendations)

	mixed := rules.ValidateAddress(flipFirstLetter(recipient), 1)
	require.True(t, mixed.Valid)
	require.Len(t, mixed.Warnings, 1)
	assert.Contains(t, mixed.Warnings[0], "checksum yang tidak sesuai")
	assert.Contains(t, mixed.Recommendations[0], "typo")
}

func TestValidateAddressIdempotentOnChecksummedForm(t *testing.T) {
	rules := NewRules(web3.DefaultCatalogue())
	for _, raw := range []string{rawRecipient, sender, "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae", "0xABCDEFabcdef0123456789abcdefABCDEF012345"} {
		canonical := common.HexToAddress(raw).Hex()
		res := rules.ValidateAddress(canonical, 1)
		assert.True(t, res.Valid, canonical)
		assert.Empty(t, res.Warnings, canonical)
		assert.Empty(t, res.Recommendations, canonical)
	}
}

func TestCheckNetworkCompatibility(t *testing.T) {
	rules := NewRules(web3.DefaultCatalogue())

	mainnet := rules.CheckNetworkCompatibility(1, recipient, "ETH")
	assert.True(t, mainnet.Valid)
	assert.Len(t, mainnet.Warnings, 1)
	assert.Contains(t, mainnet.Warnings[0], "Ethereum Mainnet")
	assert.Empty(t, mainnet.Recommendations)

	testnet := rules.CheckNetworkCompatibility(4202, recipient, "LSK")
	assert.True(t, testnet.Valid)
	require.Len(t, testnet.Warnings, 2)
	assert.Contains(t, testnet.Warnings[1], "testnet")

	polygon := rules.CheckNetworkCompatibility(137, recipient, "USDT")
	assert.True(t, polygon.Valid)
	require.Len(t, polygon.Warnings, 2)
	assert.Contains(t, polygon.Warnings[1], "Token USDT di Polygon")
	require.Len(t, polygon.Recommendations, 1)
	assert.Contains(t, polygon.Recommendations[0], "Layer 2")

	unknown := rules.CheckNetworkCompatibility(56, recipient, "ETH")
	assert.Contains(t, unknown.Warnings[0], "Chain 56")
}

func TestValidateBalance(t *testing.T) {
	rules := NewRules(web3.DefaultCatalogue())

	short := rules.ValidateBalance(0.05, 0.1, gasEstimate, "ETH")
	require.False(t, short.Valid)
	require.Len(t, short.Issues, 1)
	total := 0.1 + gasEstimate + gasEstimate*0.15
	assert.Contains(t, short.Issues[0], fmt.Sprintf("Kekurangan: %.6f ETH", total-0.05))
	assert.Contains(t, short.Issues[0], fmt.Sprintf("Diperlukan: %.6f ETH", total))
	assert.Equal(t, []string{"Top up wallet Anda atau kurangi jumlah yang dikirim."}, short.Recommendations)

	low := rules.ValidateBalance(0.105, 0.1, gasEstimate, "ETH")
	assert.True(t, low.Valid)
	assert.Len(t, low.Warnings, 1)
	assert.Len(t, low.Recommendations, 1)

	nearZero := rules.ValidateBalance(0.1005, 0.1, gasEstimate, "ETH")
	assert.True(t, nearZero.Valid)
	require.Len(t, nearZero.Warnings, 2)
	assert.Contains(t, nearZero.Warnings[1], "PERINGATAN")

	healthy := rules.ValidateBalance(1, 0.1, gasEstimate, "ETH")
	assert.True(t, healthy.Valid)
	assert.Empty(t, healthy.Warnings)
}

func TestValidateBalanceNeverPassesWhenShort(t *testing.T) {
	rules := NewRules(web3.DefaultCatalogue())
	for _, balance := range []float64{0, 0.01, 0.05, 0.1, 0.1002, 0.2, 1, 3} {
		for _, amount := range []float64{0.001, 0.1, 0.5, 2.5} {
			for _, gas := range []float64{0, gasEstimate, 0.01} {
				res := rules.ValidateBalance(balance, amount, gas, "ETH")
				if balance < amount+1.15*gas {
					assert.False(t, res.Valid, "balance=%v amount=%v gas=%v", balance, amount, gas)
				}
			}
		}
	}
}

func TestValidateAmount(t *testing.T) {
	rules := NewRules(web3.DefaultCatalogue())

	for _, amount := range []float64{0, -1} {
		res := rules.ValidateAmount(amount, "ETH", 1)
		assert.False(t, res.Valid)
		assert.Equal(t, []string{"Jumlah harus lebih besar dari 0."}, res.Issues)
	}

	dust := rules.ValidateAmount(1e-7, "ETH", 1)
	assert.True(t, dust.Valid)
	assert.Equal(t, []string{"Jumlah sangat kecil (dust). Pastikan ini yang Anda maksud."}, dust.Warnings)
	assert.False(t, dust.RequiresDoubleConfirm)

	most := rules.ValidateAmount(0.96, "ETH", 1)
	assert.True(t, most.RequiresDoubleConfirm)
	assert.Contains(t, most.Warnings[0], "96.0% dari total saldo")

	half := rules.ValidateAmount(0.6, "ETH", 1)
	assert.False(t, half.RequiresDoubleConfirm)
	assert.Contains(t, half.Warnings[0], "60.0% dari saldo")

	large := rules.ValidateAmount(11, "ETH", 100)
	assert.True(t, large.RequiresDoubleConfirm)
	assert.Contains(t, large.Warnings[0], "Transaksi besar: 11 ETH")
	assert.Len(t, large.Recommendations, 1)

	token := rules.ValidateAmount(11, "USDT", 100)
	assert.Empty(t, token.Warnings)
	assert.False(t, token.RequiresDoubleConfirm)

	round := rules.ValidateAmount(100, "USDT", 1000)
	assert.True(t, round.RequiresDoubleConfirm)
	require.Len(t, round.Warnings, 1)
	assert.Contains(t, round.Warnings[0], "misal: 1 USDT")

	assert.True(t, rules.ValidateAmount(150, "USDT", 1000).RequiresDoubleConfirm)
	assert.False(t, rules.ValidateAmount(105, "USDT", 1000).RequiresDoubleConfirm)

	unknownBalance := rules.ValidateAmount(0.5, "ETH", 0)
	assert.Empty(t, unknownBalance.Warnings)
}

func TestValidateAmountDoubleConfirmAboveNinetyFivePercent(t *testing.T) {
	rules := NewRules(web3.DefaultCatalogue())
	for _, balance := range []float64{0.001, 0.5, 1, 7.25, 42} {
		for _, share := range []float64{0.951, 0.99, 1, 1.5} {
			res := rules.ValidateAmount(balance*share, "USDT", balance)
			assert.True(t, res.RequiresDoubleConfirm, "balance=%v share=%v", balance, share)
		}
	}
}

func TestGuardianTransferScenario(t *testing.T) {
	g := newGuardian()

	ok := g.Validate(Params{
		FromAddress: sender, ToAddress: rawRecipient, Amount: 0.1, ChainID: 1,
		TokenSymbol: "ETH", Balance: f(1.0), GasEstimate: f(gasEstimate),
	})
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Issues)
	assert.NoError(t, ok.Err())

	short := g.Validate(Params{
		FromAddress: sender, ToAddress: rawRecipient, Amount: 0.1, ChainID: 1,
		TokenSymbol: "ETH", Balance: f(0.05), GasEstimate: f(gasEstimate),
	})
	assert.False(t, short.Valid)
	require.Len(t, short.Issues, 1)
	assert.Contains(t, short.Issues[0], fmt.Sprintf("Kekurangan: %.6f", 0.1+gasEstimate+gasEstimate*0.15-0.05))
	assert.Equal(t, SeverityCritical, short.Severity)
	assert.Equal(t, CodeValidationBlocking, xerrors.CodeOf(short.Err()))
}

func TestGuardianSeverity(t *testing.T) {
	g := newGuardian()

	medium := g.Validate(Params{FromAddress: sender, ToAddress: recipient, Amount: 0.1, ChainID: 1, Balance: f(1), GasEstimate: f(gasEstimate)})
	assert.Equal(t, SeverityMedium, medium.Severity)

	high := g.Validate(Params{FromAddress: sender, ToAddress: recipient, Amount: 0.97, ChainID: 1, Balance: f(1), GasEstimate: f(gasEstimate)})
	assert.True(t, high.Valid)
	assert.True(t, high.RequiresDoubleConfirm)
	assert.Equal(t, SeverityHigh, high.Severity)

	badAddress := g.Validate(Params{FromAddress: sender, ToAddress: "0x123", Amount: 0.1, ChainID: 1})
	assert.False(t, badAddress.Valid)
	assert.Equal(t, SeverityCritical, badAddress.Severity)

	zeroAmount := g.Validate(Params{FromAddress: sender, ToAddress: recipient, Amount: 0, ChainID: 1, Balance: f(1)})
	assert.False(t, zeroAmount.Valid)
	assert.Equal(t, SeverityCritical, zeroAmount.Severity)

	self := g.Validate(Params{FromAddress: recipient, ToAddress: strings.ToLower(recipient), Amount: 0.1, ChainID: 1})
	assert.True(t, self.Valid)
	assert.Contains(t, self.Warnings, "Anda mengirim ke alamat Anda sendiri. Ini akan membuang gas fee tanpa efek.")
	assert.Equal(t, SeverityMedium, self.Severity)
}

func TestGuardianSkipsChecksWithoutBalance(t *testing.T) {
	g := newGuardian()

	res := g.Validate(Params{FromAddress: sender, ToAddress: recipient, Amount: 0, ChainID: 4202})
	assert.True(t, res.Valid, "amount check needs a known balance")
	for _, w := range res.Warnings {
		assert.NotContains(t, w, "Token LSK", "empty token defaults to the chain native symbol")
	}

	noGas := g.Validate(Params{FromAddress: sender, ToAddress: recipient, Amount: 5, ChainID: 1, Balance: f(1)})
	assert.True(t, noGas.Valid, "balance check needs a known gas estimate")
	assert.True(t, noGas.RequiresDoubleConfirm)
}

func TestSeverityOnlyRises(t *testing.T) {
	assert.Equal(t, SeverityHigh, SeverityHigh.atLeast(SeverityLow))
	assert.Equal(t, SeverityMedium, SeverityLow.atLeast(SeverityMedium))
	assert.Equal(t, SeverityCritical, SeverityCritical.atLeast(SeverityHigh))
}

func flipFirstLetter(addr string) string {
	runes := []rune(addr)
	for i := 2; i < len(runes); i++ {
		r := runes[i]
		if unicode.IsLetter(r) {
			if unicode.IsUpper(r) {
				runes[i] = unicode.ToLower(r)
			} else {
				runes[i] = unicode.ToUpper(r)
			}
			return string(runes)
		}
	}
	return addr
}

func TestGuardianBlocksNonFiniteAmounts(t *testing.T) {
	g := newGuardian()
	rules := NewRules(web3.DefaultCatalogue())

	amounts := map[string]float64{"NaN": math.NaN(), "+Inf": math.Inf(1), "-Inf": math.Inf(-1)}
	cases := []struct {
		name    string
		balance *float64
		gas     *float64
	}{
		{"no balance", nil, nil},
		{"balance only", f(1), nil},
		{"balance and gas", f(1), f(gasEstimate)},
	}
	for label, amount := range amounts {
		direct := rules.ValidateAmount(amount, "ETH", 1)
		assert.False(t, direct.Valid, label)
		assert.Equal(t, []string{msgAmountNotFinite}, direct.Issues, label)

		for _, tc := range cases {
			res := g.Validate(Params{
				FromAddress: sender, ToAddress: recipient, Amount: amount, ChainID: 1,
				Balance: tc.balance, GasEstimate: tc.gas,
			})
			assert.False(t, res.Valid, "%s/%s", label, tc.name)
			assert.Equal(t, []string{msgAmountNotFinite}, res.Issues, "%s/%s", label, tc.name)
			assert.Equal(t, SeverityCritical, res.Severity, "%s/%s", label, tc.name)
			assert.Error(t, res.Err())
		}
	}
}
