package freshness

import (
	"fmt"

	"github.com/sawpanic/riskgate/internal/domain"
)

// MergePreferFresh merges two inputs field by field. A side qualifies when its value
// is non-null and not stale as of asOf; incoming wins when both qualify, and a field
// with no qualifying side is forced to null rather than keeping a stale value.
func (p *Policy) MergePreferFresh(base, incoming *domain.Input, keys []string, asOf domain.Date) *domain.Input {
	if base == nil {
		base = domain.NewInput(asOf)
	}
	out := base.Clone()
	if out.Date == "" {
		out.Date = asOf
	}
	if out.Fields == nil {
		out.Fields = make(map[string]domain.Value)
		out.Provenance = make(map[string]domain.FieldProvenance)
		out.Freshness = make(map[string]domain.Freshness)
	}
	if incoming == nil {
		incoming = domain.NewInput(asOf)
	}

	if keys == nil {
		seen := make(map[string]bool)
		for _, k := range append(base.Keys(), incoming.Keys()...) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	for _, k := range incoming.Diagnostics.Missing {
		out.MarkMissing(k)
	}
	for _, d := range incoming.Diagnostics.Errors {
		if !hasDiagnostic(out.Diagnostics.Errors, d) {
			out.Diagnostics.Errors = append(out.Diagnostics.Errors, d)
		}
	}

	for _, key := range keys {
		bOK, bStale, bFr := p.qualifies(base, key, asOf)
		iOK, iStale, iFr := p.qualifies(incoming, key, asOf)

		switch {
		case iOK:
			dropBaseDiagnostics(out, incoming, key)
			out.Fields[key] = incoming.Fields[key]
			out.Provenance[key] = incoming.Provenance[key]
			out.Freshness[key] = iFr
			out.ClearMissing(key)
		case bOK:
			out.Fields[key] = base.Fields[key]
			out.Provenance[key] = base.Provenance[key]
			out.Freshness[key] = bFr
			out.ClearMissing(key)
		case bStale || iStale:
			dropBaseDiagnostics(out, incoming, key)
			out.Fields[key] = domain.Null
			delete(out.Provenance, key)
			if iStale {
				out.Freshness[key] = iFr
			} else {
				out.Freshness[key] = bFr
			}
			out.MarkMissing(key)
			d := domain.Diagnostic{Key: key, Kind: domain.DiagStale, Message: fmt.Sprintf("%s dropped in merge: no side is fresh as of %s", key, asOf)}
			if !hasDiagnostic(out.Diagnostics.Errors, d) {
				out.Diagnostics.Errors = append(out.Diagnostics.Errors, d)
			}
		default:
			if _, ok := out.Fields[key]; !ok {
				if _, inIncoming := incoming.Fields[key]; inIncoming {
					out.Fields[key] = domain.Null
				}
			}
		}
	}
	return out
}

// qualifies reports (usable, holds-a-stale-value, freshness) for one side of a merge
func (p *Policy) qualifies(in *domain.Input, key string, asOf domain.Date) (bool, bool, domain.Freshness) {
	v, ok := in.Fields[key]
	if !ok || v.IsNull() {
		return false, false, domain.Freshness{}
	}
	fr := p.Classify(in.Provenance[key].ObservedAt, asOf, key)
	if fr.Stale() {
		return false, true, fr
	}
	return true, false, fr
}

// dropBaseDiagnostics removes the diagnostics base carried for key, keeping the
// ones incoming brings. Used when the merged value no longer comes from base.
func dropBaseDiagnostics(out, incoming *domain.Input, key string) {
	kept := out.Diagnostics.Errors[:0]
	for _, d := range out.Diagnostics.Errors {
		if d.Key != key || hasDiagnostic(incoming.Diagnostics.Errors, d) {
			kept = append(kept, d)
		}
	}
	out.Diagnostics.Errors = kept
}

func hasDiagnostic(list []domain.Diagnostic, d domain.Diagnostic) bool {
	for _, x := range list {
		if x == d {
			return true
		}
	}
	return false
}
