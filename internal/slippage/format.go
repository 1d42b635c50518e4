package slippage

import (
	"fmt"
	"sort"
	"strings"
)

// savingsThreshold is the minimum spread, in USD, worth calling out.
const savingsThreshold = 100

// Format renders an oracle response as plain chat text, cheapest venue first.
func Format(resp *Response, req Request) string {
	if resp == nil || len(resp.Quotes) == 0 {
		return "Tidak ada data harga exchange yang tersedia saat ini."
	}
	quotes := sortedQuotes(resp.Quotes)
	best, worst := quotes[0], quotes[len(quotes)-1]
	savings := worst.TotalCost - best.TotalCost

	venue := resp.BestVenue
	if venue == "" {
		venue = best.Exchange
	}

	action := "Beli"
	if req.Side == SideSell {
		action = "Jual"
	}
	base := strings.SplitN(req.Symbol, "/", 2)[0]

	var sb strings.Builder
	sb.WriteString("📊 Hasil Perbandingan Exchange\n\n")
	fmt.Fprintf(&sb, "Transaksi: %s %s %s\n\n", action, formatQuantity(req.Amount), base)
	fmt.Fprintf(&sb, "⭐ REKOMENDASI: %s\n", strings.ToUpper(venue))
	fmt.Fprintf(&sb, "💰 Total Biaya: %s\n", FormatUSD(best.TotalCost))
	if savings > savingsThreshold {
		fmt.Fprintf(&sb, "💵 Hemat: %s vs %s\n", FormatUSD(savings), strings.ToUpper(worst.Exchange))
	}
	sb.WriteString("\nPerbandingan Semua Exchange:\n")

	for i, q := range quotes {
		sb.WriteString("\n")
		if strings.EqualFold(q.Exchange, venue) {
			fmt.Fprintf(&sb, "⭐ %s (TERBAIK)\n", strings.ToUpper(q.Exchange))
		} else {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.ToUpper(q.Exchange))
		}
		fmt.Fprintf(&sb, "   💰 TOTAL: %s\n", FormatUSD(q.TotalCost))
		fmt.Fprintf(&sb, "   📈 Harga: %s\n", FormatUSD(q.QuotePrice))
		fmt.Fprintf(&sb, "   📊 Slippage: %.2f%%\n", q.PredictedSlippagePct)
		fmt.Fprintf(&sb, "   💸 Total Fee: %s\n", FormatUSD(q.Fees.TradingFee+q.Fees.SlippageCost))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatUSD abbreviates large dollar figures: $1.23M, $4.56K, $7.89.
func FormatUSD(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.2fK", v/1_000)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func sortedQuotes(in []Quote) []Quote {
	out := make([]Quote, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalCost < out[j].TotalCost })
	return out
}

func formatQuantity(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", v), "0"), ".")
}
