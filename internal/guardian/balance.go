package guardian

import "fmt"

// ValidateBalance blocks when balance cannot cover amount plus gas plus the
// gas buffer, and warns when the remainder would be too thin for another
// transfer.
func (r Rules) ValidateBalance(balance, amount, gasEstimate float64, tokenSymbol string) ValidationResult {
	res := newValidation()
	totalNeeded := r.TotalNeeded(amount, gasEstimate)

	if balance < totalNeeded {
		shortfall := totalNeeded - balance
		res.block(fmt.Sprintf("Saldo tidak cukup. Diperlukan: %.6f %s (termasuk gas + buffer), saldo Anda: %.6f %s. Kekurangan: %.6f %s.",
			totalNeeded, tokenSymbol, balance, tokenSymbol, shortfall, tokenSymbol))
		res.recommend("Top up wallet Anda atau kurangi jumlah yang dikirim.")
		return res
	}

	remaining := balance - totalNeeded
	if remaining < r.lowRemainder {
		res.warn(fmt.Sprintf("Setelah transaksi, saldo Anda akan tersisa %.6f %s. Ini mungkin tidak cukup untuk transaksi berikutnya.",
			remaining, tokenSymbol))
		res.recommend("Pertimbangkan untuk menyisakan lebih banyak saldo untuk gas fee transaksi berikutnya.")
	}
	if remaining < r.criticalRemainder {
		res.warn(fmt.Sprintf("⚠️ PERINGATAN: Saldo tersisa sangat sedikit (%.8f %s). Anda mungkin tidak bisa melakukan transaksi lagi tanpa top up.",
			remaining, tokenSymbol))
	}
	return res
}
