package affiliation

import id "corpauth/pkg/domain"

// Affiliation is a character's current corporation and alliance.
// AllianceID is zero when the corporation is not in an alliance.
type Affiliation struct {
	CharacterID   id.CharacterID
	CorporationID id.CorporationID
	AllianceID    id.AllianceID
}

// TickerKind selects which entity a ticker is looked up for.
type TickerKind string

const (
	KindCorporation TickerKind = "corporation"
	KindAlliance    TickerKind = "alliance"
)
