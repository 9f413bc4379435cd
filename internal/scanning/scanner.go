package scanning

// ReceiptText is the raw text extracted from a receipt photo, one entry
// per physical line, plus the purchase date when one was visible.
type ReceiptText struct {
	Lines        []string `json:"lines"`
	PurchaseDate string   `json:"purchase_date"` // ISO 8601 format
}

// Scanner defines the interface for receipt text extraction
type Scanner interface {
	// ExtractText transcribes a receipt image/PDF into raw text lines
	ExtractText(imageData []byte, contentType string) (*ReceiptText, error)
	// Close closes the scanner and releases resources
	Close() error
}
