package spot

// GlobalRules are the configuration-driven fallback spotting rules, consulted
// only after every watchlist namespace has missed.
type GlobalRules struct {
	SpotUnknown     bool
	SpotMilitary    bool
	SpotInteresting bool
}

// Decision is the outcome of classifying one sighting. Description and Image
// carry override metadata from a watchlist match; both may be empty on an
// accepted sighting. Rule names the rule that decided, for logging.
type Decision struct {
	Notify      bool
	Rule        string
	Description string
	Image       string
}

func suppress() (Decision, bool) {
	return Decision{}, true
}

func accept(entry WatchlistEntry) (Decision, bool) {
	return Decision{Notify: true, Description: entry.Description, Image: entry.Image}, true
}

type ruleInput struct {
	sighting  *Sighting
	watchlist *Watchlist
	seen      *SeenCache
	global    GlobalRules
}

// ruleChain is the ordered decision table. Rules are evaluated top to bottom
// and the first rule that fires wins; a rule returning false defers to the
// next one. Address matches beat registration matches beat type matches, and
// every watchlist namespace beats the global rules. A military-only type
// entry suppresses civilian airframes of that type outright, even when
// spot_military is set.
var ruleChain = []struct {
	name string
	eval func(in ruleInput) (Decision, bool)
}{
	{"already-seen", func(in ruleInput) (Decision, bool) {
		if in.seen.Seen(in.sighting.Hex) {
			return suppress()
		}
		return Decision{}, false
	}},
	{"grounded", func(in ruleInput) (Decision, bool) {
		if in.sighting.Grounded {
			return suppress()
		}
		return Decision{}, false
	}},
	{"watchlist-address", func(in ruleInput) (Decision, bool) {
		if entry, ok := in.watchlist.Lookup(KindAddress, in.sighting.Hex); ok {
			return accept(entry)
		}
		return Decision{}, false
	}},
	{"watchlist-registration", func(in ruleInput) (Decision, bool) {
		if entry, ok := in.watchlist.Lookup(KindRegistration, in.sighting.Registration); ok {
			return accept(entry)
		}
		return Decision{}, false
	}},
	{"watchlist-type", func(in ruleInput) (Decision, bool) {
		entry, ok := in.watchlist.Lookup(KindType, in.sighting.TypeCode)
		if !ok {
			return Decision{}, false
		}
		if entry.MilOnly && !in.sighting.Military {
			return suppress()
		}
		return accept(entry)
	}},
	{"unknown-registration", func(in ruleInput) (Decision, bool) {
		if in.sighting.Registration == UnknownReg && in.global.SpotUnknown {
			return Decision{Notify: true}, true
		}
		return Decision{}, false
	}},
	{"military", func(in ruleInput) (Decision, bool) {
		if in.sighting.Military && in.global.SpotMilitary {
			return Decision{Notify: true}, true
		}
		return Decision{}, false
	}},
	{"interesting", func(in ruleInput) (Decision, bool) {
		if in.sighting.Interesting && in.global.SpotInteresting {
			return Decision{Notify: true}, true
		}
		return Decision{}, false
	}},
}

// Classify runs the sighting through the rule chain. Pure: the caller
// performs all queue and seen-cache side effects on acceptance.
func Classify(sighting *Sighting, watchlist *Watchlist, seen *SeenCache, global GlobalRules) Decision {
	in := ruleInput{sighting: sighting, watchlist: watchlist, seen: seen, global: global}
	for _, rule := range ruleChain {
		if decision, fired := rule.eval(in); fired {
			decision.Rule = rule.name
			return decision
		}
	}
	return Decision{Rule: "no-match"}
}
