package models

import "time"

// IdentitySource records how a catalog identifier was first obtained.
type IdentitySource string

const (
	IdentitySourceSearch IdentitySource = "search"
	IdentitySourceImport IdentitySource = "import"
)

// CardIdentity binds a free-text card name to its TCGplayer product id.
// Entries are written once and never re-validated.
type CardIdentity struct {
	Name      string         `json:"name" gorm:"primaryKey"`
	CatalogID string         `json:"catalog_id" gorm:"not null;index"`
	Source    IdentitySource `json:"source" gorm:"default:'search'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CardMetadata is the descriptive product data shown next to a dataset row.
// All fields are blank when the product endpoint could not be read.
type CardMetadata struct {
	SetName     string `json:"set_name"`
	Number      string `json:"number"`
	ReleaseDate string `json:"release_date"`
}
