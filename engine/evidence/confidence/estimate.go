package confidence

import "math"

const (
	// diversityBonusPerType rewards distinct evidence types beyond the first.
	diversityBonusPerType = 0.05
	// diversityBonusCap bounds the total diversity contribution.
	diversityBonusCap = 0.15
	// singleEvidencePenalty applies when findings rest on one document.
	singleEvidencePenalty = 0.10

	freshPlateauDays  = 30
	recentPlateauDays = 90
	defaultMaxAgeDays = 365
	recencyFloor      = 0.1
)

// EstimateQuality derives the quality sub-factor from raw retrieval signals:
// average relevance, lifted by a capped bonus for distinct evidence types and
// penalized when everything rests on a single document. No evidence is a
// hard zero.
func EstimateQuality(avgRelevance float64, evidenceCount int, distinctTypes int) float64 {
	if evidenceCount <= 0 {
		return 0
	}
	quality := clamp01(avgRelevance)
	if distinctTypes > 1 {
		bonus := diversityBonusPerType * float64(distinctTypes-1)
		if bonus > diversityBonusCap {
			bonus = diversityBonusCap
		}
		quality += bonus
	}
	if evidenceCount == 1 {
		quality -= singleEvidencePenalty
	}
	return clamp01(quality)
}

// EstimateRecency maps evidence age in days onto a freshness factor. Audit
// defensibility degrades non-linearly: a month-old document is as good as
// new, a quarter-old one nearly so, then value decays linearly until the
// configured maximum age and exponentially beyond it, with a floor.
func EstimateRecency(ageDays float64, maxAgeDays float64) float64 {
	if maxAgeDays <= recentPlateauDays {
		maxAgeDays = defaultMaxAgeDays
	}
	switch {
	case ageDays <= freshPlateauDays:
		return 1.0
	case ageDays <= recentPlateauDays:
		return 0.9
	case ageDays <= maxAgeDays:
		span := maxAgeDays - recentPlateauDays
		progress := (ageDays - recentPlateauDays) / span
		return 0.9 - progress*0.4
	default:
		overage := ageDays - maxAgeDays
		decayed := 0.5 * math.Exp(-overage/maxAgeDays)
		if decayed < recencyFloor {
			return recencyFloor
		}
		return decayed
	}
}
