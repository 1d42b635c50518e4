package preview

import (
	"fmt"
	"strings"
)

// Summarize renders the chat message for a preview. The output depends only
// on its inputs; numbers always carry six decimals.
func Summarize(d Details, v Validations) string {
	var sb strings.Builder
	sb.WriteString("📋 Preview Transaksi\n\n")
	fmt.Fprintf(&sb, "Jumlah: %s %s\n", formatNumber(d.Amount), d.TokenSymbol)
	fmt.Fprintf(&sb, "Estimasi gas: %s %s\n", d.GasEstimate, d.TokenSymbol)
	fmt.Fprintf(&sb, "Total: %s %s\n", d.TotalEstimate, d.TokenSymbol)
	fmt.Fprintf(&sb, "Penerima: %s\n", d.ToAddress)
	fmt.Fprintf(&sb, "Jaringan: %s\n", d.ChainName)

	section(&sb, "❌", v.Issues)
	section(&sb, "⚠️", v.Warnings)
	section(&sb, "💡", v.Recommendations)

	if v.RequiresDoubleConfirm {
		sb.WriteString("\n🔐 Transaksi ini memerlukan konfirmasi tambahan karena nilai yang besar.\n")
	}

	if len(v.Issues) > 0 {
		sb.WriteString("\nPerbaiki masalah di atas sebelum melanjutkan.")
	} else {
		sb.WriteString("\nKlik \"Konfirmasi\" untuk melanjutkan transaksi.")
	}
	return sb.String()
}

func section(sb *strings.Builder, prefix string, lines []string) {
	if len(lines) == 0 {
		return
	}
	sb.WriteString("\n")
	for _, line := range lines {
		fmt.Fprintf(sb, "%s %s\n", prefix, line)
	}
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
