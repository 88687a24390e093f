package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "INFO"
	NoticeSuccess NoticeLevel = "SUCCESS"
	NoticeWarning NoticeLevel = "WARNING"
	NoticeDanger  NoticeLevel = "DANGER"
)

// Notice is a transient toast for the player. Notices are never saved.
type Notice struct {
	ID      string      `json:"id"`
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

func newNotice(now time.Time, level NoticeLevel, title, msg string) Notice {
	return Notice{ID: uuid.NewString(), Level: level, Title: title, Message: msg, At: now}
}

func dayNotices(rep DayReport, now time.Time) []Notice {
	if !rep.Advanced {
		return nil
	}
	var out []Notice
	if rep.Penalties > 0 {
		out = append(out, newNotice(now, NoticeWarning, "Rent Reduced",
			fmt.Sprintf("%d tenant(s) paid reduced rent for poor upkeep.", rep.Penalties)))
	}
	if rep.Departures > 0 {
		out = append(out, newNotice(now, NoticeInfo, "Tenants Left",
			fmt.Sprintf("%d tenant(s) moved out on day %d.", rep.Departures, rep.Day)))
	}
	if rep.LevelsGained > 0 {
		msg := fmt.Sprintf("Gained %d level(s).", rep.LevelsGained)
		if len(rep.UnlockedDistricts) > 0 {
			msg += " Unlocked: " + strings.Join(rep.UnlockedDistricts, ", ") + "."
		}
		if len(rep.UnlockedAmenities) > 0 {
			msg += " New amenities: " + strings.Join(rep.UnlockedAmenities, ", ") + "."
		}
		out = append(out, newNotice(now, NoticeSuccess, "Level Up", msg))
	}
	if rep.Event != nil {
		level := NoticeWarning
		if rep.Event.Local() {
			level = NoticeDanger
		}
		out = append(out, newNotice(now, level, rep.Event.Title, rep.Event.Description))
	}
	return out
}

func actionNotices(a Action, out Outcome, now time.Time) []Notice {
	if !out.Applied {
		return []Notice{newNotice(now, NoticeDanger, "Action Rejected",
			fmt.Sprintf("%s: %s", a.Kind, out.Reason))}
	}
	var ns []Notice
	switch a.Kind {
	case ActPurchase:
		ns = append(ns, newNotice(now, NoticeSuccess, "Property Acquired",
			fmt.Sprintf("Bought %s for $%.0f.", a.PropertyID, out.Cost)))
	case ActRepair:
		ns = append(ns, newNotice(now, NoticeSuccess, "Repaired",
			fmt.Sprintf("%s restored for $%.0f.", a.PropertyID, out.Cost)))
	}
	if out.LevelsGained > 0 {
		ns = append(ns, newNotice(now, NoticeSuccess, "Level Up",
			fmt.Sprintf("Gained %d level(s).", out.LevelsGained)))
	}
	return ns
}
