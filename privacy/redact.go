package privacy

import "dhikr/metrics"

// Redactor replaces PII in free text with fixed placeholders.
// It holds no mutable state and is safe for concurrent use.
type Redactor struct {
	passes []Pass
}

// NewRedactor returns a Redactor using the default pass order.
func NewRedactor() *Redactor {
	return &Redactor{passes: defaultPasses}
}

var defaultRedactor = NewRedactor()

// Passes returns a copy of the ordered pass table.
func (r *Redactor) Passes() []Pass {
	out := make([]Pass, len(r.passes))
	copy(out, r.passes)
	return out
}

// Redact applies every pass in order and returns the redacted text.
// Characters outside any match are preserved; redacting already-redacted
// text is a no-op.
func (r *Redactor) Redact(text string) string {
	if text == "" {
		return text
	}
	for _, p := range r.passes {
		text = p.Regex.ReplaceAllLiteralString(text, p.Placeholder)
	}
	return text
}

// RedactAndCount redacts text and returns the number of replacements per kind.
func (r *Redactor) RedactAndCount(text string) (string, map[string]int) {
	counts := make(map[string]int)
	if text == "" {
		return text, counts
	}
	for _, p := range r.passes {
		n := len(p.Regex.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		counts[p.Kind] += n
		text = p.Regex.ReplaceAllLiteralString(text, p.Placeholder)
	}
	return text, counts
}

// RedactWithMetrics redacts text and records the replacements in Prometheus.
func (r *Redactor) RedactWithMetrics(text string) string {
	out, counts := r.RedactAndCount(text)
	for kind, n := range counts {
		metrics.PIIRedactions.WithLabelValues(kind).Add(float64(n))
	}
	return out
}

// Redact redacts text with the default Redactor.
func Redact(text string) string {
	return defaultRedactor.Redact(text)
}

// RedactOptional redacts an optional string; nil stays nil.
func RedactOptional(text *string) *string {
	if text == nil {
		return nil
	}
	out := defaultRedactor.Redact(*text)
	return &out
}
