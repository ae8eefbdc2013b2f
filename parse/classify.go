package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mwauters/casegraph/core"
)

var durationPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(day|week|month)s?\b`)

// reasonKeywords are scanned in order; the first matching pattern's label
// becomes the recorded continuance reason.
var reasonKeywords = []struct {
	pattern string
	label   string
}{
	{"illness", "illness"},
	{"medical", "medical"},
	{"unavailab", "unavailability"},
	{"scheduling conflict", "scheduling conflict"},
	{"conflict", "conflict"},
	{"discovery", "discovery"},
	{"settlement", "settlement"},
	{"vacation", "vacation"},
	{"new counsel", "new counsel"},
	{"substitution", "substitution of counsel"},
}

// classifyType infers an event type from register text.
func classifyType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "continuance", "adjourn", "postpone"):
		return "continuance"
	case containsAny(lower, "hearing", "trial"):
		return "hearing"
	case containsAny(lower, "order", "ruling", "judgment"):
		return "order"
	default:
		return "filing"
	}
}

// classifyRegisterActor attributes a register entry. An explicit hint column
// wins; otherwise keywords decide, with a fallback to the court for
// order/hearing-flavored text.
func classifyRegisterActor(text, hint string) core.Actor {
	if actor, ok := actorFromHint(hint); ok {
		return actor
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "petitioner"):
		return core.ActorPetitioner
	case strings.Contains(lower, "respondent"):
		return core.ActorRespondent
	case containsAny(lower, "attorney", "counsel"):
		return core.ActorAttorney
	case containsAny(lower, "court", "judge", "clerk"):
		return core.ActorCourt
	case containsAny(lower, "order", "ruling", "judgment", "hearing", "trial"):
		return core.ActorCourt
	default:
		return core.ActorOther
	}
}

func actorFromHint(hint string) (core.Actor, bool) {
	switch core.Actor(strings.ToLower(strings.TrimSpace(hint))) {
	case core.ActorPetitioner:
		return core.ActorPetitioner, true
	case core.ActorRespondent:
		return core.ActorRespondent, true
	case core.ActorCourt:
		return core.ActorCourt, true
	case core.ActorAttorney:
		return core.ActorAttorney, true
	default:
		return core.ActorOther, false
	}
}

// continuanceReason extracts a short reason from the description, or
// "unspecified" when no known keyword appears.
func continuanceReason(description string) string {
	lower := strings.ToLower(description)
	for _, reason := range reasonKeywords {
		if strings.Contains(lower, reason.pattern) {
			return reason.label
		}
	}
	return "unspecified"
}

// continuanceDuration parses "N days/weeks/months" from the description and
// normalizes to days (weeks x7, months x30). Returns 0 when no duration is
// stated.
func continuanceDuration(description string) int {
	match := durationPattern.FindStringSubmatch(description)
	if match == nil {
		return 0
	}

	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}

	switch strings.ToLower(match[2]) {
	case "week":
		return n * 7
	case "month":
		return n * 30
	default:
		return n
	}
}
