package imepay

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
)

func TestCheckoutURL(t *testing.T) {
	c := NewClient(Config{
		BaseURL:      "https://stg.imepay.com.np:7979",
		MerchantCode: "NOAI",
	})

	got := c.CheckoutURL("TOK123", "REF-1-abcd", 499, "https://api.example.com/gateway/imepay/callback", "https://api.example.com/gateway/imepay/cancelled")

	if !strings.HasPrefix(got, "https://stg.imepay.com.np:7979/WebCheckout/Checkout?data=") {
		t.Fatalf("unexpected checkout url: %s", got)
	}

	raw := strings.TrimPrefix(got, "https://stg.imepay.com.np:7979/WebCheckout/Checkout?data=")
	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		t.Fatalf("query unescape: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}

	want := "TOK123|NOAI|REF-1-abcd|499.00|GET|https://api.example.com/gateway/imepay/callback|https://api.example.com/gateway/imepay/cancelled"
	if string(decoded) != want {
		t.Fatalf("payload mismatch:\n got %s\nwant %s", decoded, want)
	}
}

func TestDecodeCallback(t *testing.T) {
	payload := "0|Success|9841000000|TXN-77|REF-1-abcd|499.00|TOK123"
	data := base64.StdEncoding.EncodeToString([]byte(payload))

	got, err := DecodeCallback(data)
	if err != nil {
		t.Fatalf("decode callback: %v", err)
	}

	if got.ResponseCode != CodeSuccess {
		t.Errorf("response code = %d, want %d", got.ResponseCode, CodeSuccess)
	}
	if got.TransactionID != "TXN-77" {
		t.Errorf("transaction id = %s, want TXN-77", got.TransactionID)
	}
	if got.RefID != "REF-1-abcd" {
		t.Errorf("ref id = %s, want REF-1-abcd", got.RefID)
	}
	if got.Amount != "499.00" {
		t.Errorf("amount = %s, want 499.00", got.Amount)
	}
	if got.TokenID != "TOK123" {
		t.Errorf("token id = %s, want TOK123", got.TokenID)
	}
}

func TestDecodeCallbackRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"not base64":     "%%%not-base64%%%",
		"too few fields": base64.StdEncoding.EncodeToString([]byte("0|ok|123")),
		"bad code":       base64.StdEncoding.EncodeToString([]byte("9|x|m|t|r|1.00|tok")),
	}

	for name, data := range cases {
		if _, err := DecodeCallback(data); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestNewRefIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRefID()
		if !strings.HasPrefix(id, "REF-") {
			t.Fatalf("unexpected ref id format: %s", id)
		}
		if seen[id] {
			t.Fatalf("duplicate ref id: %s", id)
		}
		seen[id] = true
	}
}
