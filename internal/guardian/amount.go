package guardian

import (
	"fmt"
	"math"
	"strconv"
)

// ValidateAmount flags implausible amounts: non-positive, dust, most of the
// balance, large native transfers and large round numbers that may be a
// misplaced decimal point. The share-of-balance checks only run for a
// positive balance.
func (r Rules) ValidateAmount(amount float64, tokenSymbol string, balance float64) AmountResult {
	res := AmountResult{ValidationResult: newValidation()}

	if !isFinite(amount) {
		res.block(msgAmountNotFinite)
		return res
	}
	if amount <= 0 {
		res.block("Jumlah harus lebih besar dari 0.")
		return res
	}

	if amount < r.dustThreshold {
		res.warn("Jumlah sangat kecil (dust). Pastikan ini yang Anda maksud.")
	}

	if balance > 0 {
		pct := amount / balance * 100
		switch {
		case pct > 95:
			res.warn(fmt.Sprintf("Anda mengirim %.1f%% dari total saldo Anda. Pastikan Anda menyisakan cukup untuk gas fee.", pct))
			res.RequiresDoubleConfirm = true
		case pct > 50:
			res.warn(fmt.Sprintf("Anda mengirim %.1f%% dari saldo Anda. Pastikan ini sudah benar.", pct))
		}
	}

	if amount > r.largeNative && r.isNative(tokenSymbol) {
		res.warn(fmt.Sprintf("Transaksi besar: %s %s. Periksa kembali semua detail sebelum melanjutkan.", formatAmount(amount), tokenSymbol))
		res.recommend("Untuk transaksi besar, pertimbangkan untuk membagi menjadi beberapa transaksi lebih kecil.")
		res.RequiresDoubleConfirm = true
	}

	// 大额整数（如 100 而非 1.00）视为可能的小数点输入错误。
	if amount >= r.roundThreshold && math.Mod(amount, 10) == 0 {
		res.warn(fmt.Sprintf("Jumlah %s %s adalah angka bulat besar. Pastikan bukan typo (misal: %s %s)?",
			formatAmount(amount), tokenSymbol, formatAmount(amount/100), tokenSymbol))
		res.RequiresDoubleConfirm = true
	}

	return res
}

const msgAmountNotFinite = "Jumlah tidak valid: harus berupa angka."

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
