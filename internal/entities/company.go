package entities

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Tier string

const (
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// Tiers in priority order, highest first.
var Tiers = []Tier{TierS, TierA, TierB, TierC, TierD}

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	switch t {
	case TierS, TierA, TierB, TierC, TierD:
		return t, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Rank returns 0 for S and grows towards D. Unknown tiers sort last.
func (t Tier) Rank() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return len(Tiers)
}

// TierForScore maps a priority score to its tier.
func TierForScore(score int) Tier {
	switch {
	case score >= 150:
		return TierS
	case score >= 100:
		return TierA
	case score >= 70:
		return TierB
	case score >= 40:
		return TierC
	default:
		return TierD
	}
}

type Company struct {
	ID             uint     `gorm:"primaryKey"`
	Name           string   `gorm:"uniqueIndex;size:255;not null"`
	Website        string
	About          string   `gorm:"type:text"`
	TechStack      []string `gorm:"serializer:json"`
	RemoteFriendly bool
	PriorityScore  int
	Tier           Tier `gorm:"size:1;default:'D'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BeforeSave keeps the tier in sync with the priority score.
func (c *Company) BeforeSave(_ *gorm.DB) error {
	c.Tier = TierForScore(c.PriorityScore)
	return nil
}
