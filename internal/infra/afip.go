package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// AFIP voucher type codes (WSFEV1).
const (
	CbteFacturaB     = 6
	CbteFacturaC     = 11
	CbteNotaCreditoB = 8
)

// AFIPPayload is sent by the invoice worker to the AFIP sidecar, which
// handles WSAA + WSFEV1 and returns the CAE.
type AFIPPayload struct {
	VoucherType int     `json:"tipo_cbte"`
	PointOfSale int     `json:"punto_vta"`
	TaxID       string  `json:"cuit"`
	NetAmount   float64 `json:"monto_neto"`
	TaxAmount   float64 `json:"monto_iva"`
	TotalAmount float64 `json:"monto_total"`
	SaleID      string  `json:"venta_id"`
	// AssociatedCAE links a credit note to the CAE of the invoice it
	// reverses (associated-voucher requirement). Empty for invoices.
	AssociatedCAE string `json:"cae_asociado,omitempty"`
}

// AFIPResponse is returned by the sidecar after querying WSFEV1.
type AFIPResponse struct {
	CAE           string `json:"cae"`
	CAEDue        string `json:"cae_vencimiento"`
	Result        string `json:"resultado"` // "A" (approved) | "R" (rejected)
	VoucherNumber int64  `json:"nro_cbte"`
	Observations  []struct {
		Code    int    `json:"codigo"`
		Message string `json:"mensaje"`
	} `json:"observaciones"`
}

// AFIPClient delegates AFIP communication to the sidecar over HTTP. The
// decoupling isolates tax-authority failures from the core backend.
type AFIPClient struct {
	sidecarURL string
	httpClient *http.Client
}

func NewAFIPClient(sidecarURL string) *AFIPClient {
	return &AFIPClient{
		sidecarURL: sidecarURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Issue sends a POST to the sidecar and returns the CAE response.
func (c *AFIPClient) Issue(ctx context.Context, payload AFIPPayload) (*AFIPResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("afip: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sidecarURL+"/facturar", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("afip: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("afip: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("afip: sidecar returned %d", resp.StatusCode)
	}

	var result AFIPResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("afip: decode response: %w", err)
	}
	return &result, nil
}
