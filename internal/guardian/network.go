package guardian

import "fmt"

// CheckNetworkCompatibility never blocks. It reminds the user that the
// recipient must be reachable on the sending chain and flags non-native
// tokens, testnets and layer-2 networks.
func (r Rules) CheckNetworkCompatibility(chainID int64, toAddress, tokenSymbol string) ValidationResult {
	res := newValidation()
	def, known := r.catalog.Lookup(chainID)
	chainName := r.catalog.NameOf(chainID)

	res.warn(fmt.Sprintf("Pastikan penerima menggunakan alamat yang sama di %s. "+
		"Alamat Ethereum sama di semua EVM chains, tapi jika penerima tidak memiliki akses ke chain ini, dana tidak bisa diakses.", chainName))

	if tokenSymbol != "" && !r.isNative(tokenSymbol) {
		res.warn(fmt.Sprintf("Token %s di %s adalah kontrak spesifik untuk chain ini. "+
			"Pastikan penerima dapat menerima %s di %s.", tokenSymbol, chainName, tokenSymbol, chainName))
	}

	if known && def.Layer2 {
		res.recommend(fmt.Sprintf("Anda mengirim di %s (Layer 2). Pastikan penerima memiliki akses ke chain ini.", chainName))
	}

	if known && def.Testnet {
		res.warn(fmt.Sprintf("⚠️ Anda mengirim di %s (testnet). Token ini tidak memiliki nilai real.", chainName))
	}

	return res
}
