package capacity

// AutoAction is an automatic response triggered when utilization crosses a
// configured threshold.
type AutoAction string

const (
	ActionAlertAdmins       AutoAction = "ALERT_ADMINS"
	ActionNotifyUsers       AutoAction = "NOTIFY_USERS"
	ActionOfferAlternatives AutoAction = "OFFER_ALTERNATIVES"
)

// Threshold boundaries as a fraction of BASE capacity (not effective
// capacity): overbooking alerts fire once base capacity is approached or
// exceeded, which is the point of tracking overbooking separately.
var thresholdBoundaries = []float64{0.80, 1.00}

// ThresholdCrossing reports a single boundary crossed by a committed ledger
// mutation, together with the actions the configuration enables for it.
type ThresholdCrossing struct {
	Boundary float64
	Actions  []AutoAction
}

// EnabledActions returns the set of automatic actions the config toggles on.
func (c *CapacityConfig) EnabledActions() []AutoAction {
	var actions []AutoAction
	if c.AlertAdmins {
		actions = append(actions, ActionAlertAdmins)
	}
	if c.NotifyUsers {
		actions = append(actions, ActionNotifyUsers)
	}
	if c.OfferAlternatives {
		actions = append(actions, ActionOfferAlternatives)
	}
	return actions
}

// EvaluateThresholds returns the boundaries first crossed when usage
// (confirmed + held) moves from prevUsed to newUsed against the config's
// base capacity. A boundary is crossed when usage moves from at-or-below to
// strictly above it: with totalCapacity=100 the 100% boundary fires on the
// 101st slot, the 80% boundary on the 81st.
func (c *CapacityConfig) EvaluateThresholds(prevUsed, newUsed int) []ThresholdCrossing {
	if c.TotalCapacity <= 0 || newUsed <= prevUsed {
		return nil
	}

	var crossings []ThresholdCrossing
	for _, boundary := range thresholdBoundaries {
		mark := float64(c.TotalCapacity) * boundary
		if float64(prevUsed) <= mark && float64(newUsed) > mark {
			crossings = append(crossings, ThresholdCrossing{
				Boundary: boundary,
				Actions:  c.EnabledActions(),
			})
		}
	}
	return crossings
}

// UtilizationRatio is usage relative to BASE capacity. Values above 1.0 mean
// the overbooking allowance is being consumed.
func (c *CapacityConfig) UtilizationRatio(used int) float64 {
	if c.TotalCapacity <= 0 {
		return 0
	}
	return float64(used) / float64(c.TotalCapacity)
}
