package detectors

import "github.com/opensrc/codehealth/internal/model"

// complexityToSeverity implements P9: < 11 -> none (info), [11,20] -> LOW,
// [21,30] -> MEDIUM, >= 31 -> HIGH. Monotone in c by construction.
func complexityToSeverity(c int) model.Severity {
	switch {
	case c >= 31:
		return model.SeverityHigh
	case c >= 21:
		return model.SeverityMedium
	case c >= 11:
		return model.SeverityLow
	default:
		return model.SeverityInfo
	}
}

// methodCountToSeverity implements the god-class threshold ladder (P10):
// < 15 -> none, [15,19] -> MEDIUM, [20,29] -> HIGH, >= 30 -> CRITICAL.
func methodCountToSeverity(n int) model.Severity {
	switch {
	case n >= 30:
		return model.SeverityCritical
	case n >= 20:
		return model.SeverityHigh
	case n >= 15:
		return model.SeverityMedium
	default:
		return model.SeverityInfo
	}
}

// cycleLengthToSeverity: 2 -> LOW, 3-4 -> MEDIUM, 5-9 -> HIGH, >=10 -> CRITICAL.
func cycleLengthToSeverity(n int) model.Severity {
	switch {
	case n >= 10:
		return model.SeverityCritical
	case n >= 5:
		return model.SeverityHigh
	case n >= 3:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// escalate applies the risk-escalation law (P14): 0 extra factors -> no
// change, 1 -> +1 level (saturating), >=2 -> CRITICAL.
func escalate(base model.Severity, extraFactors int) model.Severity {
	switch {
	case extraFactors >= 2:
		return model.SeverityCritical
	case extraFactors == 1:
		return base.Escalate()
	default:
		return base
	}
}

func maxSeverity(a, b model.Severity) model.Severity {
	if b > a {
		return b
	}
	return a
}
