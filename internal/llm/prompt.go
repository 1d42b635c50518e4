package llm

import (
	"fmt"
	"strings"
)

const basePrompt = `Kamu adalah Nova AI, asisten crypto wallet yang ramah dan membantu. Kamu berbicara dalam Bahasa Indonesia yang natural dan mudah dipahami.

Tugas kamu:
1. Bantu user memahami saldo wallet mereka
2. Jelaskan informasi crypto dan perbandingan exchange dengan bahasa sederhana
3. Jangan pernah mengeksekusi transaksi tanpa konfirmasi eksplisit dari user

Ingat:
- Selalu gunakan Bahasa Indonesia
- Kalau user belum connect wallet, ingatkan mereka untuk connect dulu
- Alamat tujuan transfer harus alamat EVM yang valid (format 0x...)`

// SystemPrompt renders the system instruction for a request, including the
// wallet context and any facts gathered before deferring.
func SystemPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\nKonteks Wallet Saat Ini:\n")
	if req.Wallet.Connected {
		fmt.Fprintf(&sb, "- Address: %s\n", req.Wallet.Address)
		if req.Wallet.ChainName != "" {
			fmt.Fprintf(&sb, "- Chain: %s (%d)\n", req.Wallet.ChainName, req.Wallet.ChainID)
		} else {
			fmt.Fprintf(&sb, "- Chain ID: %d\n", req.Wallet.ChainID)
		}
		sb.WriteString("- Status: Terhubung\n")
	} else {
		sb.WriteString("- Status: Belum terhubung (user perlu connect wallet dulu)\n")
	}

	if intent := strings.TrimSpace(req.Intent); intent != "" {
		fmt.Fprintf(&sb, "\nIntent terdeteksi: %s\n", intent)
	}
	if len(req.Observations) > 0 {
		sb.WriteString("\nData terbaru:\n")
		for _, obs := range req.Observations {
			fmt.Fprintf(&sb, "- %s\n", strings.TrimSpace(obs))
		}
	}
	if len(req.References) > 0 {
		sb.WriteString("\nReferensi yang bisa dipakai:\n")
		for _, ref := range req.References {
			fmt.Fprintf(&sb, "- %s\n", strings.TrimSpace(ref))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Conversation returns the history followed by the current utterance, with
// empty entries dropped and roles normalised.
func Conversation(req Request) []Message {
	out := make([]Message, 0, len(req.History)+1)
	for _, m := range req.History {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		out = append(out, Message{Role: role, Content: content})
	}
	if u := strings.TrimSpace(req.Utterance); u != "" {
		out = append(out, Message{Role: RoleUser, Content: u})
	}
	return out
}
