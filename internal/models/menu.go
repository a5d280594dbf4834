package models

// MenuItem is the wire shape returned by the Menu service. The catalog
// itself is owned by that service; this type only decodes lookups.
type MenuItem struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}
