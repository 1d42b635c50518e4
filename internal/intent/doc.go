// Package intent turns chat utterances into structured wallet intents.
//
// Extraction and classification are deterministic keyword and regular
// expression passes over a single utterance; the Accumulator folds a whole
// conversation so that parameters given across several turns combine into
// one executable request.
package intent
