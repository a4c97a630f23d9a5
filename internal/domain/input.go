package domain

import (
	"sort"
	"time"
)

// FieldProvenance records where and when a field value came from
type FieldProvenance struct {
	Source     string     `json:"source,omitempty"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// DiagnosticKind tags a diagnostic so operators can tell "no data" from "data too old"
type DiagnosticKind string

const (
	DiagMissing      DiagnosticKind = "missing"
	DiagTypeMismatch DiagnosticKind = "type_mismatch"
	DiagStale        DiagnosticKind = "stale"
	DiagStaleBlocked DiagnosticKind = "stale_blocked"
	DiagBackfilled   DiagnosticKind = "backfilled"
	DiagCollector    DiagnosticKind = "collector"
)

// Diagnostic is one human-readable note attached to an input record
type Diagnostic struct {
	Key     string         `json:"key,omitempty"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// Diagnostics accumulates missing keys and errors while an input is assembled
type Diagnostics struct {
	Missing []string     `json:"missing"`
	Errors  []Diagnostic `json:"errors"`
}

// Input is the per-date record of named signals plus typed side channels
type Input struct {
	Date        Date                       `json:"date"`
	Fields      map[string]Value           `json:"fields"`
	Provenance  map[string]FieldProvenance `json:"provenance,omitempty"`
	Freshness   map[string]Freshness       `json:"freshness,omitempty"`
	Diagnostics Diagnostics                `json:"diagnostics"`
}

// NewInput creates an empty input for a date
func NewInput(date Date) *Input {
	return &Input{
		Date:       date,
		Fields:     make(map[string]Value),
		Provenance: make(map[string]FieldProvenance),
		Freshness:  make(map[string]Freshness),
	}
}

// Get returns the value of a field (Null when absent)
func (in *Input) Get(key string) Value {
	if in == nil || in.Fields == nil {
		return Null
	}
	return in.Fields[key]
}

// Num returns the numeric value of a field, or 0 when it is not a number
func (in *Input) Num(key string) float64 {
	f, _ := in.Get(key).Float()
	return f
}

// Flag returns the boolean value of a field, or false when it is not a boolean
func (in *Input) Flag(key string) bool {
	b, _ := in.Get(key).Flag()
	return b
}

// Set stores a value and its provenance
func (in *Input) Set(key string, v Value, prov FieldProvenance) {
	in.ensure()
	in.Fields[key] = v
	in.Provenance[key] = prov
}

// AddError appends a diagnostic
func (in *Input) AddError(key string, kind DiagnosticKind, msg string) {
	in.Diagnostics.Errors = append(in.Diagnostics.Errors, Diagnostic{Key: key, Kind: kind, Message: msg})
}

// MarkMissing records a key as missing once
func (in *Input) MarkMissing(key string) {
	for _, k := range in.Diagnostics.Missing {
		if k == key {
			return
		}
	}
	in.Diagnostics.Missing = append(in.Diagnostics.Missing, key)
	sort.Strings(in.Diagnostics.Missing)
}

// ClearMissing removes a key from the missing list
func (in *Input) ClearMissing(key string) {
	out := in.Diagnostics.Missing[:0]
	for _, k := range in.Diagnostics.Missing {
		if k != key {
			out = append(out, k)
		}
	}
	in.Diagnostics.Missing = out
}

// ErrorsOfKind returns diagnostics with the given kind
func (in *Input) ErrorsOfKind(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range in.Diagnostics.Errors {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Keys returns the field keys in sorted order
func (in *Input) Keys() []string {
	keys := make([]string, 0, len(in.Fields))
	for k := range in.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy so frozen records are never aliased
func (in *Input) Clone() *Input {
	if in == nil {
		return nil
	}
	out := &Input{
		Date:       in.Date,
		Fields:     make(map[string]Value, len(in.Fields)),
		Provenance: make(map[string]FieldProvenance, len(in.Provenance)),
		Freshness:  make(map[string]Freshness, len(in.Freshness)),
		Diagnostics: Diagnostics{
			Missing: append([]string(nil), in.Diagnostics.Missing...),
			Errors:  append([]Diagnostic(nil), in.Diagnostics.Errors...),
		},
	}
	for k, v := range in.Fields {
		out.Fields[k] = v
	}
	for k, v := range in.Provenance {
		out.Provenance[k] = v
	}
	for k, v := range in.Freshness {
		out.Freshness[k] = v
	}
	return out
}

func (in *Input) ensure() {
	if in.Fields == nil {
		in.Fields = make(map[string]Value)
	}
	if in.Provenance == nil {
		in.Provenance = make(map[string]FieldProvenance)
	}
	if in.Freshness == nil {
		in.Freshness = make(map[string]Freshness)
	}
}
