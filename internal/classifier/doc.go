// Package classifier wraps the external text-classification backend.
//
// The backend accepts {"message": "..."} and answers with a verdict
// {"is_beato_meme": bool, "confidence": 0..1, "reasoning": "..."}. The client
// maps every call to an explicit outcome — matched, unmatched, or
// unavailable — so callers never have to distinguish "skip" from "fatal" by
// inspecting error types. An optional deterministic prefilter can veto the
// backend call for text with no chord or progression patterns.
package classifier
