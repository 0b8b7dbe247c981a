package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidfi/supplysync/internal/supplysync/token"
)

func TestTreasury_MintSubmitsUnscaledAmount(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/token/mint", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"tx_hash":"0xdead","success":true,"gas_used":"55"}`))
	}))
	defer srv.Close()

	tr := NewTreasury(srv.URL)
	out, err := tr.Mint(context.Background(), "0xabc", token.TSLA, "500000000000000000")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", body["wallet"])
	assert.Equal(t, "TSLA", body["symbol"])
	assert.Equal(t, "500000000000000000", body["amount"])

	assert.True(t, out.Success)
	assert.Equal(t, "0xdead", out.TxHash)
	assert.Equal(t, "55", out.GasUsed)
	assert.Empty(t, out.ErrorMessage)
}

func TestTreasury_BurnFailureCarriesVMStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/token/burn", r.URL.Path)
		_, _ = w.Write([]byte(`{"tx_hash":"0xbeef","success":false,"vm_status":"EINSUFFICIENT_BALANCE"}`))
	}))
	defer srv.Close()

	tr := NewTreasury(srv.URL)
	out, err := tr.Burn(context.Background(), "0xabc", token.USDC, "10")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "EINSUFFICIENT_BALANCE", out.ErrorMessage)
}

func TestTreasury_KYC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			assert.Equal(t, "/v1/kyc/0xabc", r.URL.Path)
			_, _ = w.Write([]byte(`{"verified":true}`))
		default:
			assert.Equal(t, "/v1/kyc", r.URL.Path)
			_, _ = w.Write([]byte(`{"tx_hash":"0x1","success":true}`))
		}
	}))
	defer srv.Close()

	tr := NewTreasury(srv.URL)

	ok, err := tr.IsVerified(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := tr.SetVerified(context.Background(), "0xabc", true)
	require.NoError(t, err)
	assert.True(t, out.Success)
}

func TestTreasury_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewTreasury(srv.URL)
	_, err := tr.IsVerified(context.Background(), "0xabc")
	assert.Error(t, err)
}
