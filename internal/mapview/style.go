package mapview

import "github.com/linnemanlabs/darkwatch/internal/backend"

// RiskBucket is the marker color class for an alert's risk score.
type RiskBucket string

const (
	RiskCritical RiskBucket = "critical" // >= 76
	RiskHigh     RiskBucket = "high"     // 51..75
	RiskMedium   RiskBucket = "medium"   // 21..50
	RiskLow      RiskBucket = "low"      // < 21
)

// BucketForScore maps a risk score to its marker bucket.
func BucketForScore(score float64) RiskBucket {
	switch {
	case score >= 76:
		return RiskCritical
	case score >= 51:
		return RiskHigh
	case score >= 21:
		return RiskMedium
	default:
		return RiskLow
	}
}

// StyleJamming is the highest-salience corridor style. Jamming corridors get
// it regardless of their declared type.
const StyleJamming = "jamming"

var corridorStyles = map[backend.CorridorType]string{
	backend.CorridorTransit:     "transit",
	backend.CorridorSTSZone:     "sts",
	backend.CorridorJammingZone: StyleJamming,
	backend.CorridorExportRoute: "export",
	backend.CorridorImportRoute: "import",
	backend.CorridorDarkZone:    "dark",
}

// StyleForCorridor resolves a corridor's polygon style.
func StyleForCorridor(c backend.Corridor) string {
	if c.IsJamming {
		return StyleJamming
	}
	if s, ok := corridorStyles[c.Type]; ok {
		return s
	}
	return "transit"
}
