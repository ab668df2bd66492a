package collectible

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rarity tiers, lowest first.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Rarities lists every valid rarity.
var Rarities = []string{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

// Collectible represents a row in the collectibles table.
type Collectible struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	BandID      *uuid.UUID
	Name        string
	Description string
	Rarity      string
	ImagePrompt string
	Attributes  map[string]string
	CreatedAt   time.Time
}

// Draft is a generated collectible that has not been saved yet.
type Draft struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Rarity      string            `json:"rarity"`
	ImagePrompt string            `json:"imagePrompt"`
	Attributes  map[string]string `json:"attributes"`
}

// NormalizeRarity maps free-form model output onto a known rarity.
// Unknown values fall back to common.
func NormalizeRarity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "legend"), strings.Contains(s, "mythic"):
		return RarityLegendary
	case strings.Contains(s, "epic"):
		return RarityEpic
	case strings.Contains(s, "rare"):
		return RarityRare
	default:
		return RarityCommon
	}
}

// IsValidRarity reports whether s is one of Rarities.
func IsValidRarity(s string) bool {
	for _, r := range Rarities {
		if r == s {
			return true
		}
	}
	return false
}
