package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"NovaWallet/sdk/go/nova"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chains", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(nova.ChainList{
			DefaultChain: 4202,
			Chains:       []nova.Chain{{ID: 4202, Name: "Lisk Sepolia", NativeSymbol: "LSK", Testnet: true}},
		})
	})
	mux.HandleFunc("/api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(nova.ChatReply{
			Kind:    "preview",
			Intent:  "SEND",
			Message: "Preview transaksi siap, silakan konfirmasi.",
			Preview: &nova.Preview{
				ID:      "preview-demo",
				Success: true,
				Preview: nova.PreviewDetails{
					AmountFormatted: "0.1 LSK",
					ChainName:       "Lisk Sepolia",
					GasEstimate:     "0.00021",
					TotalEstimate:   "0.10021",
				},
				CreatedAt: time.Now().UTC(),
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := nova.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chains, err := client.Chains(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("default chain %d (%d supported)\n", chains.DefaultChain, len(chains.Chains))

	reply, err := client.Chat(ctx, nova.ChatRequest{
		Message: "kirim 0.1 LSK ke 0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		Wallet: nova.WalletContext{
			Connected: true,
			Address:   "0x1111111111111111111111111111111111111111",
			ChainID:   4202,
		},
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s: %s\n", reply.Intent, reply.Message)
	if reply.Preview != nil {
		fmt.Printf("preview %s total=%s\n", reply.Preview.ID, reply.Preview.Preview.TotalEstimate)
	}
}
