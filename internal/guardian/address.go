package guardian

import (
	"strings"

	"NovaWallet/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateAddress checks format, EIP-55 checksum and the zero address.
// chainId is accepted for future per-chain address formats; every chain in
// the catalogue is EVM today.
func (r Rules) ValidateAddress(address string, chainID int64) ValidationResult {
	res := newValidation()
	log := logger.Named("guardian")

	if strings.TrimSpace(address) == "" {
		res.block("Alamat tidak valid: format tidak dikenali.")
		return res
	}
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		res.block("Format alamat tidak valid. Pastikan formatnya 0x... dengan 40 karakter hexadecimal.")
		return res
	}

	addr := common.HexToAddress(address)
	checksummed := addr.Hex()
	if checksummed != address {
		body := address[2:]
		switch {
		case body == strings.ToLower(body):
			res.warn("Alamat menggunakan format lowercase. Untuk keamanan ekstra, gunakan format checksum: " + checksummed)
			res.recommend("Format checksum membantu mencegah typo. Alamat lowercase tetap valid, tapi checksum lebih aman.")
		case body == strings.ToUpper(body):
			res.warn("Alamat menggunakan format uppercase. Untuk keamanan, gunakan format checksum: " + checksummed)
		default:
			res.warn("Alamat memiliki checksum yang tidak sesuai. Format yang benar: " + checksummed)
			res.recommend("Periksa kembali alamat - mungkin ada typo. Checksum yang salah bisa berarti alamat salah.")
		}
	}

	if addr == (common.Address{}) {
		res.block("Alamat nol (0x000...000) tidak valid untuk transaksi. Ini akan membakar token Anda.")
		return res
	}

	log.Debug("address validated", "address", address, "chain_id", chainID, "warnings", len(res.Warnings))
	return res
}
