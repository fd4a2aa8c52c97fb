package api

import "net/http"

// PrivacyPolicy describes what the service stores and what it discards
type PrivacyPolicy struct {
	Policy           string            `json:"policy"`
	Principles       []string          `json:"principles"`
	DataCollected    map[string]string `json:"data_collected"`
	DataNotCollected []string          `json:"data_not_collected"`
	Contact          string            `json:"contact"`
}

func defaultPrivacyPolicy() PrivacyPolicy {
	return PrivacyPolicy{
		Policy: "Dhikr Extension Privacy Policy",
		Principles: []string{
			"Raw IP addresses are used once for a coarse geolocation lookup and never stored",
			"URLs are redacted and then hashed with HMAC-SHA256; only the hash is stored",
			"Emails, phone numbers, tokens and session identifiers are redacted before hashing",
			"Page titles are never stored",
			"Geolocation is coarse (city and country only)",
			"Analytics are reported in aggregate per category",
		},
		DataCollected: map[string]string{
			"url_id":           "HMAC-SHA256 hash of the redacted URL",
			"domain":           "Domain name only (e.g. youtube.com)",
			"category_key":     "Site classification (waste, distraction, etc.)",
			"duration_seconds": "Time spent on the site",
			"region":           "Coarse location (city, country)",
			"day":              "Date in YYYY-MM-DD format",
		},
		DataNotCollected: []string{
			"Raw URLs",
			"Page titles",
			"IP addresses (discarded after geolocation)",
			"Personal identifiers (emails, phone numbers)",
			"Authentication tokens or session data",
			"Exact browsing history",
		},
		Contact: "For privacy concerns, please contact the extension developer",
	}
}

func (a *API) getPrivacyPolicy(w http.ResponseWriter, r *http.Request) {
	a.respondSuccess(w, "Privacy policy", defaultPrivacyPolicy())
}
