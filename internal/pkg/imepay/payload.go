package imepay

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// The web checkout exchanges data as a pipe-delimited, base64-encoded string:
//
//	outbound: TokenId|MerchantCode|RefId|Amount|GET|RespUrl|CancelUrl
//	callback: ResponseCode|ResponseDescription|Msisdn|TransactionId|RefId|TranAmount|TokenId

// CheckoutURL builds the redirect URL that sends the user to the hosted
// payment page.
func (c *Client) CheckoutURL(tokenID, refID string, amount float64, respURL, cancelURL string) string {
	payload := strings.Join([]string{
		tokenID,
		c.config.MerchantCode,
		refID,
		FormatAmount(amount),
		"GET",
		respURL,
		cancelURL,
	}, "|")

	encoded := base64.StdEncoding.EncodeToString([]byte(payload))
	return c.BaseURL() + "/WebCheckout/Checkout?data=" + url.QueryEscape(encoded)
}

// CallbackPayload is the decoded gateway callback
type CallbackPayload struct {
	ResponseCode  int
	Description   string
	Msisdn        string
	TransactionID string
	RefID         string
	Amount        string
	TokenID       string
}

// DecodeCallback parses the base64 "data" query parameter of the callback
// request. The payload is untrusted until matched against the stored pending
// transaction.
func DecodeCallback(data string) (*CallbackPayload, error) {
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("callback data is empty")
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 callback data: %w", err)
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 7 {
		return nil, fmt.Errorf("malformed callback payload: expected 7 fields, got %d", len(parts))
	}

	code, err := parseResponseCode(parts[0])
	if err != nil {
		return nil, err
	}

	return &CallbackPayload{
		ResponseCode:  code,
		Description:   parts[1],
		Msisdn:        parts[2],
		TransactionID: parts[3],
		RefID:         parts[4],
		Amount:        parts[5],
		TokenID:       parts[6],
	}, nil
}

func parseResponseCode(s string) (int, error) {
	switch strings.TrimSpace(s) {
	case "0":
		return CodeSuccess, nil
	case "1":
		return CodeFailed, nil
	case "2":
		return CodeError, nil
	case "3":
		return CodeCancelled, nil
	}
	return 0, fmt.Errorf("unknown response code %q", s)
}
