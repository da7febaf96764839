package review

// EvidenceDocument is a document attached to a group.
type EvidenceDocument struct {
	DocumentID   string `json:"document_id"`
	FileName     string `json:"file_name,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// PriceItem is a contracted price extracted from a document.
type PriceItem struct {
	PriceItemID     string `json:"price_item_id"`
	ContractID      string `json:"contract_id,omitempty"`
	DocumentID      string `json:"document_id,omitempty"`
	PageID          string `json:"page_id,omitempty"`
	PageNumber      Num    `json:"page_number"`
	SKU             string `json:"sku,omitempty"`
	ItemName        string `json:"item_name,omitempty"`
	UnitPrice       Num    `json:"unit_price"`
	Currency        string `json:"currency,omitempty"`
	UOM             string `json:"uom,omitempty"`
	EffectiveFrom   string `json:"effective_from,omitempty"`
	EffectiveTo     string `json:"effective_to,omitempty"`
	Snippet         string `json:"snippet,omitempty"`
	ConfidenceScore Num    `json:"confidence_score"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// EvidenceItem is one piece of evidence supporting a group.
type EvidenceItem struct {
	EvidenceID string     `json:"evidence_id"`
	Kind       string     `json:"kind,omitempty"`
	Title      string     `json:"title,omitempty"`
	Snippet    string     `json:"snippet,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
	PageID     string     `json:"page_id,omitempty"`
	PageNumber Num        `json:"page_number"`
	CreatedAt  string     `json:"created_at,omitempty"`
	PriceItem  *PriceItem `json:"price_item,omitempty"`
}

// GroupEvidenceResponse is returned by GET /api/v1/groups/groups/{id}/evidence.
type GroupEvidenceResponse struct {
	GroupID   string             `json:"group_id"`
	Documents []EvidenceDocument `json:"documents"`
	Evidences []EvidenceItem     `json:"evidences"`
}

// DocumentPage is returned by GET /api/v1/documents/{id}/pages/{page}.
// StorageKey is set when the page lives in object storage and has to be
// presigned before display.
type DocumentPage struct {
	DocumentID string `json:"document_id,omitempty"`
	Page       int    `json:"page,omitempty"`
	PDFURL     string `json:"pdf_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	PageText   string `json:"page_text,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
}
