package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liquidfi/supplysync/internal/supplysync/model"
	"github.com/liquidfi/supplysync/internal/supplysync/token"
)

// Treasury talks to the signer service that owns the token module: it
// submits mint/burn transactions and reads/sets KYC clearance. Signing
// and gas handling live on the other side of this boundary.
type Treasury struct {
	base string
	hc   *http.Client
}

func NewTreasury(base string) *Treasury {
	return &Treasury{
		base: strings.TrimRight(base, "/"),
		hc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type txResult struct {
	TxHash   string `json:"tx_hash"`
	Success  bool   `json:"success"`
	GasUsed  string `json:"gas_used"`
	VMStatus string `json:"vm_status"`
}

func (r txResult) outcome() model.MutationOutcome {
	out := model.MutationOutcome{
		TxHash:  r.TxHash,
		Success: r.Success,
		GasUsed: r.GasUsed,
	}
	if !r.Success {
		out.ErrorMessage = r.VMStatus
		if out.ErrorMessage == "" {
			out.ErrorMessage = "transaction failed"
		}
	}
	return out
}

func (t *Treasury) IsVerified(ctx context.Context, wallet string) (bool, error) {
	var resp struct {
		Verified bool `json:"verified"`
	}
	if err := t.do(ctx, http.MethodGet, "/v1/kyc/"+wallet, nil, &resp); err != nil {
		return false, err
	}
	return resp.Verified, nil
}

func (t *Treasury) SetVerified(ctx context.Context, wallet string, verified bool) (model.MutationOutcome, error) {
	req := map[string]any{"wallet": wallet, "verified": verified}
	var res txResult
	if err := t.do(ctx, http.MethodPost, "/v1/kyc", req, &res); err != nil {
		return model.MutationOutcome{}, err
	}
	return res.outcome(), nil
}

// Mint submits a mint of amount (unscaled integer string) to wallet.
func (t *Treasury) Mint(ctx context.Context, wallet string, class token.Class, amount string) (model.MutationOutcome, error) {
	return t.mutate(ctx, "/v1/token/mint", wallet, class, amount)
}

// Burn submits a burn of amount (unscaled integer string) from wallet.
func (t *Treasury) Burn(ctx context.Context, wallet string, class token.Class, amount string) (model.MutationOutcome, error) {
	return t.mutate(ctx, "/v1/token/burn", wallet, class, amount)
}

func (t *Treasury) mutate(ctx context.Context, path, wallet string, class token.Class, amount string) (model.MutationOutcome, error) {
	req := map[string]any{
		"wallet": wallet,
		"symbol": class.Symbol(),
		"amount": amount,
	}
	var res txResult
	if err := t.do(ctx, http.MethodPost, path, req, &res); err != nil {
		return model.MutationOutcome{}, err
	}
	return res.outcome(), nil
}

func (t *Treasury) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(payload)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("treasury %s status=%d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
