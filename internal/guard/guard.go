// Package guard screens user text and candidate SQL before either reaches
// the model or the database. Every check is a pure function of its input.
package guard

// Effect is the outcome of a guard check.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Verdict carries the effect of a check and the rule that decided it.
type Verdict struct {
	Effect Effect
	Reason string
}

// Allowed reports whether the verdict lets the input through.
func (v Verdict) Allowed() bool {
	return v.Effect == EffectAllow
}

func allow() Verdict {
	return Verdict{Effect: EffectAllow, Reason: "ok"}
}

func deny(reason string) Verdict {
	return Verdict{Effect: EffectDeny, Reason: reason}
}
