package models

import "time"

// Product represents a catalog entry. Products are archived, never deleted.
type Product struct {
	ID            int64      `json:"id"`
	SKU           string     `json:"sku"`
	Name          string     `json:"name"`
	LocalName     string     `json:"local_name,omitempty"`
	PhotoRef      string     `json:"photo_ref,omitempty"`
	Archived      bool       `json:"archived"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	LastRestockAt *time.Time `json:"last_restock_at,omitempty"`
	Revision      int64      `json:"revision"`
	CreatedAt     time.Time  `json:"created_at"`
}

type LocationKind string

const (
	LocationUnassigned LocationKind = "unassigned"
	LocationWarehouse  LocationKind = "warehouse"
	LocationShelf      LocationKind = "shelf"
	LocationHall       LocationKind = "hall"
)

// UnassignedLocation receives imported items that name no location.
const UnassignedLocation = "UNASSIGNED"

type Location struct {
	Code  string       `json:"code"`
	Kind  LocationKind `json:"kind"`
	Title string       `json:"title"`
}

func (k LocationKind) Valid() bool {
	switch k {
	case LocationUnassigned, LocationWarehouse, LocationShelf, LocationHall:
		return true
	}
	return false
}

// ImportLog records a processed upload so the same file is not applied twice.
type ImportLog struct {
	BatchID    string    `json:"batch_id"`
	SourceHash string    `json:"source_hash"`
	Imported   int       `json:"imported"`
	Failed     int       `json:"failed"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}
