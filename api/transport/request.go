package transport

type RefreshRequest struct {
	TTL int `json:"ttl_seconds"`
}

type NavigateRequest struct {
	View string `json:"view"`
}

type SelectRequest struct {
	ListingID string `json:"listing_id"`
}

type StartPaymentRequest struct {
	ListingID string `json:"listing_id"`
}

type PaymentMethodRequest struct {
	Method string `json:"method"`
}

type AmountRequest struct {
	Amount float64 `json:"amount"`
}
