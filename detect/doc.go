// Package detect classifies a visited page against the reminder rules.
//
// A Classifier looks up the rules for the page's exact domain and picks the
// one that governs it: an explicit path rule first, then the domain-wide
// default. Lookups can be served through a CachedRuleStore, an LRU keyed by
// domain in front of persistent storage.
package detect
