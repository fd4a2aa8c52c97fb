package privacy

import "regexp"

// Pass is one ordered redaction step: every match of Regex is replaced by
// Placeholder before the next pass runs.
type Pass struct {
	Kind        string
	Regex       *regexp.Regexp
	Placeholder string
	Description string
}

const (
	EmailPlaceholder = "[EMAIL_REDACTED]"
	PhonePlaceholder = "[PHONE_REDACTED]"
	UUIDPlaceholder  = "[UUID_REDACTED]"
	TokenPlaceholder = "[TOKEN_REDACTED]"
	SSNPlaceholder   = "[SSN_REDACTED]"
	CardPlaceholder  = "[CARD_REDACTED]"
)

// Patterns are compiled once. Go's RE2 engine guarantees matching in time
// linear in the input, so no pass can be driven into catastrophic backtracking.
var (
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

	// 555-123-4567, 555.123.4567, 5551234567
	phoneDashedRegex = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	// (555) 123-4567
	phoneParenRegex = regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.\s]*\d{4}`)
	// +44 20 1234 5678, +1-555-123-4567
	phoneIntlRegex = regexp.MustCompile(`\+\d{1,3}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}\b`)

	uuidRegex = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

	// Long opaque strings, optionally prefixed by "Bearer ".
	longTokenRegex = regexp.MustCompile(`(?i)\b(?:Bearer\s+)?[A-Za-z0-9_-]{20,}\b`)
	// token=..., api_key:..., access-token=...
	keyedTokenRegex = regexp.MustCompile(`(?i)\b(?:token|key|api[_-]?key|access[_-]?token|auth[_-]?token)[=:]\s*[A-Za-z0-9_-]{10,}\b`)

	ssnRegex = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	cardRegex = regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)
)

// defaultPasses is the fixed redaction order. Later passes see the output of
// earlier ones, so a phone-shaped digit run inside an email is already gone
// by the time the phone passes run.
var defaultPasses = []Pass{
	{Kind: "email", Regex: emailRegex, Placeholder: EmailPlaceholder, Description: "Email addresses"},
	{Kind: "phone", Regex: phoneDashedRegex, Placeholder: PhonePlaceholder, Description: "North American phone numbers"},
	{Kind: "phone", Regex: phoneParenRegex, Placeholder: PhonePlaceholder, Description: "Phone numbers with area code in parentheses"},
	{Kind: "phone", Regex: phoneIntlRegex, Placeholder: PhonePlaceholder, Description: "International phone numbers"},
	{Kind: "uuid", Regex: uuidRegex, Placeholder: UUIDPlaceholder, Description: "UUIDs"},
	{Kind: "token", Regex: longTokenRegex, Placeholder: TokenPlaceholder, Description: "Bearer tokens and long opaque strings"},
	{Kind: "token", Regex: keyedTokenRegex, Placeholder: TokenPlaceholder, Description: "key=value style credentials"},
	{Kind: "ssn", Regex: ssnRegex, Placeholder: SSNPlaceholder, Description: "US social security numbers"},
	{Kind: "card", Regex: cardRegex, Placeholder: CardPlaceholder, Description: "Payment card numbers"},
}
