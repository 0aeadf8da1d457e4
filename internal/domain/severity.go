package domain

// Severity is the warning level derived from a tide level.
type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityOrange Severity = "orange"
	SeverityRed    Severity = "red"
)

// Lower bounds (inclusive) of each warning band, in centimetres.
const (
	YellowThreshold = 80  // lowest point of the city
	OrangeThreshold = 105 // Rialto
	RedThreshold    = 135 // Santa Lucia railway station
)

// Classify maps a tide level in centimetres to its warning level.
func Classify(level int) Severity {
	switch {
	case level < YellowThreshold:
		return SeverityGreen
	case level < OrangeThreshold:
		return SeverityYellow
	case level < RedThreshold:
		return SeverityOrange
	default:
		return SeverityRed
	}
}

func (s Severity) String() string { return string(s) }

// Description explains what the warning level means on the ground.
func (s Severity) Description() string {
	switch s {
	case SeverityGreen:
		return "no flooding expected"
	case SeverityYellow:
		return "water above the lowest point of the city"
	case SeverityOrange:
		return "water above the Rialto area, about 5% of the city flooded"
	case SeverityRed:
		return "water above the railway station, almost 50% of the city flooded"
	default:
		return ""
	}
}
