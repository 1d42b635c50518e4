package llm

import (
	"strings"
	"testing"
)

func TestSystemPromptIncludesContext(t *testing.T) {
	prompt := SystemPrompt(Request{
		Wallet:       WalletContext{Connected: true, Address: "0xabc", ChainID: 4202, ChainName: "Lisk Sepolia"},
		Intent:       "GET_BALANCE",
		Observations: []string{" Saldo LSK di Lisk Sepolia: 2.500000 LSK "},
		References:   []string{"Saldo: Saldo yang ditampilkan adalah saldo token native."},
	})
	for _, want := range []string{
		"- Address: 0xabc",
		"- Chain: Lisk Sepolia (4202)",
		"Intent terdeteksi: GET_BALANCE",
		"- Saldo LSK di Lisk Sepolia: 2.500000 LSK\n",
		"Referensi yang bisa dipakai:\n- Saldo: Saldo yang ditampilkan",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSystemPromptDisconnectedWallet(t *testing.T) {
	prompt := SystemPrompt(Request{})
	if !strings.Contains(prompt, "Belum terhubung") {
		t.Fatalf("expected disconnected status, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "Referensi") || strings.HasSuffix(prompt, "\n") {
		t.Fatalf("unexpected trailing sections:\n%s", prompt)
	}
}

func TestConversationNormalisesRoles(t *testing.T) {
	msgs := Conversation(Request{
		History: []Message{
			{Role: "system", Content: "ignored role"},
			{Role: RoleAssistant, Content: "  "},
			{Role: RoleAssistant, Content: "Halo!"},
		},
		Utterance: " cek saldo ",
	})
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant || msgs[2].Content != "cek saldo" {
		t.Fatalf("unexpected conversation: %+v", msgs)
	}
}
