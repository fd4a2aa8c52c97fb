// Package content resolves verse references to text, translation and audio.
//
// Resolution is cache-first. On a miss the quran.com provider is tried,
// guarded by a circuit breaker, then alquran.cloud. Successful fetches are
// upserted into the cache keyed by (reference, lang), so concurrent misses
// for the same key settle on the last write.
package content
