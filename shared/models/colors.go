package models

// SeverityColor is the fill/stroke pair used consistently across map
// rendering, legends and badges for one severity level.
type SeverityColor struct {
	Fill   string
	Stroke string
}

var severityColors = map[string]SeverityColor{
	SeverityExtreme:  {Fill: "#d72f2a", Stroke: "#ac2420"},
	SeveritySevere:   {Fill: "#fe9900", Stroke: "#ca7a00"},
	SeverityModerate: {Fill: "#ffff00", Stroke: "#cbcb00"},
	SeverityMinor:    {Fill: "#03ffff", Stroke: "#00cdcd"},
	SeverityUnknown:  {Fill: "#3366ff", Stroke: "#003df4"},
}

// ColorForSeverity returns the color pair for a severity level. Unlisted
// values fall back to the Unknown entry.
func ColorForSeverity(severity string) SeverityColor {
	if c, ok := severityColors[severity]; ok {
		return c
	}
	return severityColors[SeverityUnknown]
}

// SeverityRank orders severities from Unknown (0) to Extreme (4). Used to
// pick the info block that headlines short-form summaries.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityExtreme:
		return 4
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}
