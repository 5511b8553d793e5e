package entity

// ClassificationRequest is the product summary sent to an external classifier.
type ClassificationRequest struct {
	Platform    Source   `json:"platform"`
	Title       string   `json:"title"`
	ProductType string   `json:"product_type,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ClassificationResponse is an external classifier's verdict.
type ClassificationResponse struct {
	IsCoffee   bool    `json:"is_coffee"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}
