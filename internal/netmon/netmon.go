package netmon

import "context"

// Medium is the transport the host is currently using for its uplink.
type Medium string

const (
	// MediumUnknown means no observation has been made yet (startup) or
	// the source could not tell what the link is.
	MediumUnknown Medium = "unknown"
	// MediumNone means the host is known to be offline.
	MediumNone     Medium = "none"
	MediumWifi     Medium = "wifi"
	MediumCellular Medium = "cellular"
	// MediumOther covers transports the shipping policy has no special
	// handling for (ethernet, vpn, bluetooth tethering, ...).
	MediumOther Medium = "other"
)

// ParseMedium maps a reported medium string onto the known set. Empty
// input means the source had nothing to say (unknown); any unrecognized
// non-empty transport is folded into other.
func ParseMedium(s string) Medium {
	switch Medium(s) {
	case MediumUnknown, MediumNone, MediumWifi, MediumCellular, MediumOther:
		return Medium(s)
	}
	if s == "" {
		return MediumUnknown
	}
	return MediumOther
}

// Generation is the cellular network generation. The empty value means
// the source did not report one; an absent generation never counts as an
// upgrade.
type Generation string

const (
	Gen2 Generation = "2g"
	Gen3 Generation = "3g"
	Gen4 Generation = "4g"

	// TopTier is the generation considered strong enough for immediate
	// sends over cellular.
	TopTier = Gen4
)

// ParseGeneration maps a reported generation string onto the known set,
// returning the absent value for anything unrecognized.
func ParseGeneration(s string) Generation {
	switch Generation(s) {
	case Gen2, Gen3, Gen4:
		return Generation(s)
	}
	return ""
}

// Snapshot is one observation of the uplink.
type Snapshot struct {
	Connected  bool       `json:"connected"`
	Medium     Medium     `json:"medium"`
	Generation Generation `json:"generation,omitempty"`
}

// String renders the snapshot for logs: "wifi", "cellular/3g",
// "none (offline)".
func (s Snapshot) String() string {
	out := string(s.Medium)
	if s.Medium == MediumCellular && s.Generation != "" {
		out += "/" + string(s.Generation)
	}
	if !s.Connected {
		out += " (offline)"
	}
	return out
}

// Good reports whether the link is strong enough for an immediate send:
// connected on wifi, or connected on top-tier cellular.
func (s Snapshot) Good() bool {
	if !s.Connected {
		return false
	}
	switch s.Medium {
	case MediumWifi:
		return true
	case MediumCellular:
		return s.Generation == TopTier
	}
	return false
}

// IsUpgrade classifies a transition between two snapshots. It reports
// true in exactly two situations:
//
//  1. the previous medium was unknown (startup) or none (offline) and the
//     current medium is wifi;
//  2. both mediums are cellular, the previous generation is known and
//     below top tier, and the current generation is top tier.
//
// Everything else, including a missing previous generation, is not an
// upgrade. Landing on strong cellular from offline, or moving from
// cellular to wifi, intentionally does not trigger: the buffer drains on
// the next wifi reconnect instead of mid-handover, when the link is
// still settling.
func IsUpgrade(prev, cur Snapshot) bool {
	if (prev.Medium == MediumUnknown || prev.Medium == MediumNone) && cur.Medium == MediumWifi {
		return true
	}
	if prev.Medium == MediumCellular && cur.Medium == MediumCellular {
		return prev.Generation != "" && prev.Generation != TopTier && cur.Generation == TopTier
	}
	return false
}

// Transition pairs two consecutive snapshots.
type Transition struct {
	Prev Snapshot
	Cur  Snapshot
}

// Upgrade reports whether this transition is a classified connectivity
// upgrade.
func (t Transition) Upgrade() bool {
	return IsUpgrade(t.Prev, t.Cur)
}

// Prober answers the question "what does the uplink look like right
// now". Probe failures are real outcomes, not retriable glitches: the
// dispatcher drops the event and says so on the diagnostic channel.
type Prober interface {
	Probe(ctx context.Context) (Snapshot, error)
}

// Source is a stream of connectivity transitions. Run blocks until ctx
// is done; Transitions never closes while Run is live.
type Source interface {
	Run(ctx context.Context) error
	Transitions() <-chan Transition
}
