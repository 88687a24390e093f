package progression

import (
	"math"

	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
)

// UpgradeXP is the experience granted for spending cost on an amenity upgrade.
func UpgradeXP(p tuning.Progression, cost float64) int {
	return int(math.Floor(cost * p.XPUpgradeFactor))
}

// PassiveXP is the per-day trickle earned while reputation is high.
func PassiveXP(p tuning.Progression, reputation float64) int {
	if reputation >= p.PassiveMinReputation {
		return p.XPPassive
	}
	return 0
}

// Result describes what one Settle call changed.
type Result struct {
	LevelsGained      int
	UnlockedDistricts []string
}

// Settle converts banked XP into levels until XP is below the threshold,
// carrying the remainder and growing the threshold each time. Districts whose
// unlock level was reached are appended in catalog order. Any gain is merged
// into w.LevelUp so the player sees it once.
func Settle(p tuning.Progression, districts []catalogs.DistrictDef, w *state.World) Result {
	var res Result
	from := w.Level
	for w.XPToNextLevel > 0 && w.XP >= w.XPToNextLevel {
		w.XP -= w.XPToNextLevel
		w.Level++
		w.XPToNextLevel = nextThreshold(p, w.XPToNextLevel)
		res.LevelsGained++
	}
	if res.LevelsGained == 0 {
		return res
	}
	res.UnlockedDistricts = UnlockDistricts(districts, w)

	if w.LevelUp == nil {
		w.LevelUp = &state.LevelUp{From: from}
	}
	w.LevelUp.To = w.Level
	w.LevelUp.UnlockedDistricts = append(w.LevelUp.UnlockedDistricts, res.UnlockedDistricts...)
	return res
}

// UnlockDistricts adds every district the current level qualifies for and
// returns the newly added ids. The unlocked set only ever grows.
func UnlockDistricts(districts []catalogs.DistrictDef, w *state.World) []string {
	var added []string
	for _, d := range districts {
		if w.Level >= d.UnlockLevel && !w.DistrictUnlocked(d.ID) {
			w.UnlockedDistricts = append(w.UnlockedDistricts, d.ID)
			added = append(added, d.ID)
		}
	}
	return added
}

func nextThreshold(p tuning.Progression, cur int) int {
	next := int(math.Floor(float64(cur) * p.ThresholdGrowth))
	if next < 1 {
		next = 1
	}
	return next
}
