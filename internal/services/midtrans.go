package services

import (
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
)

type MidtransService struct {
	ServerKey  string
	ClientKey  string
	BaseURL    string
	SnapURL    string
	Production bool
}

// Midtrans API response structures
type SnapTokenResponse struct {
	Token       string   `json:"token"`
	RedirectURL string   `json:"redirect_url"`
	Errors      []string `json:"error_messages,omitempty"`
}

type TransactionStatusResponse struct {
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	TransactionID     string `json:"transaction_id"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionTime   string `json:"transaction_time"`
	SettlementTime    string `json:"settlement_time"`
}

// NewMidtransService creates a new Midtrans service instance
func NewMidtransService() *MidtransService {
	production := os.Getenv("MIDTRANS_IS_PRODUCTION") == "true"

	baseURL := "https://api.sandbox.midtrans.com"
	snapURL := "https://app.sandbox.midtrans.com/snap/v1/transactions"
	if production {
		baseURL = "https://api.midtrans.com"
		snapURL = "https://app.midtrans.com/snap/v1/transactions"
	}

	return &MidtransService{
		ServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
		ClientKey:  os.Getenv("MIDTRANS_CLIENT_KEY"),
		BaseURL:    baseURL,
		SnapURL:    snapURL,
		Production: production,
	}
}

// makeRequest makes HTTP request to Midtrans API
func (ms *MidtransService) makeRequest(method, url string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(ms.ServerKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{}
	return client.Do(req)
}

// GenerateOrderID builds a unique escrow order id for an adoption.
func GenerateOrderID(adoptionID uint) string {
	return fmt.Sprintf("ADOPT-%d-%s", adoptionID, uuid.NewString()[:8])
}

// CreateSnapToken requests a Snap payment token for an escrow order
func (ms *MidtransService) CreateSnapToken(orderID string, grossAmount float64, customerName, customerEmail, itemName string) (*SnapTokenResponse, error) {
	payload := map[string]interface{}{
		"transaction_details": map[string]interface{}{
			"order_id":     orderID,
			"gross_amount": int64(grossAmount),
		},
		"customer_details": map[string]interface{}{
			"first_name": customerName,
			"email":      customerEmail,
		},
		"item_details": []map[string]interface{}{
			{
				"id":       orderID,
				"price":    int64(grossAmount),
				"quantity": 1,
				"name":     itemName,
			},
		},
	}

	resp, err := ms.makeRequest("POST", ms.SnapURL, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result SnapTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("midtrans error: %s", result.Errors[0])
	}
	if result.Token == "" {
		return nil, fmt.Errorf("midtrans error: empty snap token")
	}

	return &result, nil
}

// GetTransactionStatus fetches the current status of an order
func (ms *MidtransService) GetTransactionStatus(orderID string) (*TransactionStatusResponse, error) {
	resp, err := ms.makeRequest("GET", ms.BaseURL+"/v2/"+orderID+"/status", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result TransactionStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.StatusCode != "200" {
		return nil, fmt.Errorf("midtrans error: %s", result.StatusMessage)
	}

	return &result, nil
}

// VerifySignature checks the notification signature. The signature is
// sha512(order_id + status_code + gross_amount + server_key) in lowercase hex,
// so the gross_amount string must be byte-identical to what Midtrans signed.
func (ms *MidtransService) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + ms.ServerKey))
	return hex.EncodeToString(sum[:]) == signatureKey
}
