package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"dhikr/core"
	"dhikr/service"

	"github.com/go-playground/validator/v10"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

const healthCheckTimeout = 2 * time.Second

// langPattern accepts ISO 639 style codes ("en", "ar", "urd")
var langPattern = regexp.MustCompile(`^[a-z]{2,3}$`)

const invalidLangMessage = "Query parameter 'lang' must be a 2 or 3 letter lowercase language code"

// analyticsLogRequest is the body of POST /analytics/log
type analyticsLogRequest struct {
	URL             string  `json:"url" validate:"required,max=8192"`
	Title           *string `json:"title" validate:"omitempty,max=2048"`
	Domain          string  `json:"domain" validate:"required,max=253"`
	Path            *string `json:"path" validate:"omitempty,max=2048"`
	DurationSeconds *int    `json:"duration_seconds" validate:"required,gte=0,lte=86400"`
}

// triggerLogRequest is the body of POST /log-trigger
type triggerLogRequest struct {
	Domain          string  `json:"domain" validate:"required,max=253"`
	Path            *string `json:"path" validate:"omitempty,max=2048"`
	CategoryKey     string  `json:"category_key" validate:"required,max=64"`
	DurationSeconds *int    `json:"duration_seconds" validate:"required,gte=0,lte=86400"`
}

// ruleResponse is one entry of GET /rules
type ruleResponse struct {
	ID            int64   `json:"id"`
	DomainPattern string  `json:"domain_pattern"`
	PathPattern   *string `json:"path_pattern"`
	CategoryKey   string  `json:"category_key"`
	Reference     string  `json:"reference"`
}

// reminderResponse flattens the matched rule and its verse
type reminderResponse struct {
	Category    string `json:"category"`
	Reference   string `json:"reference"`
	VerseText   string `json:"verse_text"`
	Translation string `json:"translation"`
	AudioURL    string `json:"audio_url"`
	Source      string `json:"source"`
}

type analyticsLogResponse struct {
	URLID    string  `json:"url_id"`
	Category *string `json:"category"`
	Region   string  `json:"region"`
}

type summaryEntry struct {
	Count int64   `json:"count"`
	Hours float64 `json:"hours"`
}

type triggerLogResponse struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
}

func (a *API) root(w http.ResponseWriter, r *http.Request) {
	a.respondSuccess(w, "Dhikr API is running", map[string]interface{}{
		"version": Version,
		"endpoints": []string{
			"/reminder - Get Quran reminder for a domain/path",
			"/reminder/ayah - Get a verse by reference",
			"/rules - Get all reminder rules",
			"/analytics/log - Log anonymized browsing event",
			"/analytics/summary - Get analytics summary",
			"/log-trigger - Log reminder trigger event",
			"/privacy - View privacy policy",
		},
	})
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := a.health.HealthCheck(ctx); err != nil {
			a.logger.Warnw("Health check failed", "error", err)
			a.respondJSON(w, Response{
				Status:  statusError,
				Message: "API is unhealthy",
				Data:    map[string]bool{"healthy": false},
			}, http.StatusServiceUnavailable)
			return
		}
	}
	a.respondSuccess(w, "API is healthy", map[string]bool{"healthy": true})
}

func (a *API) getRules(w http.ResponseWriter, r *http.Request) {
	rules, err := a.reminders.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err, a.logger)
		return
	}

	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		entry := ruleResponse{
			ID:            rule.ID,
			DomainPattern: rule.DomainPattern,
			CategoryKey:   rule.CategoryKey,
			Reference:     rule.Reference,
		}
		if rule.HasPath() {
			path := rule.PathPattern
			entry.PathPattern = &path
		}
		out = append(out, entry)
	}
	a.respondSuccess(w, fmt.Sprintf("Found %d reminder rules", len(out)), out)
}

// getReminder serves GET /reminder?domain=&path=&lang=
func (a *API) getReminder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	domain := strings.TrimSpace(q.Get("domain"))
	if domain == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'domain' is required", nil, a.logger)
		return
	}

	lang, ok := langParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, invalidLangMessage, nil, a.logger)
		return
	}

	reminder, err := a.reminders.GetReminder(r.Context(), domain, q.Get("path"), lang)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrRuleNotFound):
			writeError(w, http.StatusNotFound, "No reminder rule found for this domain and path", nil, a.logger)
		case errors.Is(err, core.ErrUpstreamUnavailable):
			writeError(w, http.StatusBadGateway, "Failed to fetch ayah from Quran API", err, a.logger)
		default:
			// A stored rule with a malformed reference lands here too
			writeError(w, http.StatusInternalServerError, "Failed to resolve reminder", err, a.logger)
		}
		return
	}

	a.respondSuccess(w, "Reminder fetched successfully", newReminderResponse(reminder.Category, reminder.Reference, reminder.Content))
}

// getAyah serves GET /reminder/ayah?reference=&lang=
func (a *API) getAyah(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get("reference"))
	if reference == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'reference' is required", nil, a.logger)
		return
	}

	lang, ok := langParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, invalidLangMessage, nil, a.logger)
		return
	}

	content, err := a.reminders.GetVerse(r.Context(), reference, lang)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidReference):
			writeError(w, http.StatusBadRequest, "Invalid verse reference; expected surah:ayah or surah:start-end", err, a.logger)
		case errors.Is(err, core.ErrUpstreamUnavailable):
			writeError(w, http.StatusBadGateway, "Failed to fetch ayah from Quran API", err, a.logger)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to resolve ayah", err, a.logger)
		}
		return
	}

	a.respondSuccess(w, "Ayah fetched successfully", newReminderResponse("", reference, content))
}

// logAnalytics serves POST /analytics/log
func (a *API) logAnalytics(w http.ResponseWriter, r *http.Request) {
	var req analyticsLogRequest
	if err := a.decodeJSONBodyWithLimit(w, r, &req, maxRequestBodyBytes); err != nil {
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err), err, a.logger)
		return
	}

	event, err := a.analytics.RecordEvent(r.Context(), service.EventInput{
		URL:             req.URL,
		Title:           req.Title,
		Domain:          req.Domain,
		Path:            derefString(req.Path),
		DurationSeconds: *req.DurationSeconds,
		ClientIP:        getRealIP(r, a.config.API.TrustProxy, a.config.API.TrustedProxyNetworks),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			writeError(w, http.StatusUnprocessableEntity, "Invalid analytics event", err, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to log analytics", err, a.logger)
		return
	}

	resp := analyticsLogResponse{URLID: event.URLID, Region: event.Region}
	if event.CategoryKey != "" {
		category := event.CategoryKey
		resp.Category = &category
	}
	a.respondSuccess(w, "Analytics logged successfully", resp)
}

// getAnalyticsSummary serves GET /analytics/summary?period=7d
func (a *API) getAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	if period == "" {
		period = "7d"
	}

	summaries, err := a.analytics.Summary(r.Context(), period)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid period; expected 1d to %dd", core.MaxSummaryDays), err, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to summarize analytics", err, a.logger)
		return
	}

	data := make(map[string]summaryEntry, len(summaries))
	for _, s := range summaries {
		data[s.Category] = summaryEntry{Count: s.Count, Hours: s.Hours}
	}
	a.respondSuccess(w, "Analytics summary for the last "+period, data)
}

// logTrigger serves POST /log-trigger
func (a *API) logTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerLogRequest
	if err := a.decodeJSONBodyWithLimit(w, r, &req, maxRequestBodyBytes); err != nil {
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err), err, a.logger)
		return
	}

	record, err := a.triggers.RecordTrigger(r.Context(), service.TriggerInput{
		Domain:          req.Domain,
		Path:            derefString(req.Path),
		CategoryKey:     req.CategoryKey,
		DurationSeconds: *req.DurationSeconds,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			writeError(w, http.StatusUnprocessableEntity, "Invalid trigger", err, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to log trigger", err, a.logger)
		return
	}

	a.respondSuccess(w, "Trigger logged successfully", triggerLogResponse{Domain: record.Domain, Category: record.CategoryKey})
}

func newReminderResponse(category, reference string, content *core.Content) reminderResponse {
	resp := reminderResponse{Category: category, Reference: reference}
	if content != nil {
		resp.VerseText = content.VerseText
		resp.Translation = content.Translation
		resp.AudioURL = content.AudioURL
		resp.Source = content.Source
	}
	return resp
}

// langParam returns the requested language, core.DefaultLang when absent,
// and false when the value is not a short lowercase code
func langParam(r *http.Request) (string, bool) {
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))
	if lang == "" {
		return core.DefaultLang, true
	}
	return lang, langPattern.MatchString(lang)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// validationMessage names the first failing field and rule
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Validation failed for field '%s' on rule '%s'", fe.Field(), fe.Tag())
	}
	return "Invalid request body"
}
