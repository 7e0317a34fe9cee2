// Package domain models observations, classification rules and the
// matching primitives used to pair them.
//
// # Observations
//
// An observation is one row of an input spreadsheet. Two shapes are handled:
//
//	IT systems ("TIME"):  Observation_ID, Observation_Text, optional ranking
//	                      columns (Severity, Recurrence, Anomaly, Time Sensitivity)
//	                      or structured Entity / Metric / Value columns.
//	Weather:              Location, Sky Condition, Rain Condition, Wind Condition,
//	                      Free Text Observation.
//
// Every categorical column is kept in [Observation.Fields]; the free text is
// [Observation.Text]. Embeddings are computed lazily from the text through an
// [Embedder] and cached on the observation for the rest of the run.
//
// # Rules
//
// Rules map a condition to an action. TIME rules carry a textual Condition
// (e.g. "CPU usage consistently above 90%") and one of the actions
// Tolerate, Invest, Migrate or Eliminate. Weather rules carry exact
// Sky / Rain / Wind values, an optional Location Exception, a Classification
// and a Recommendation.
//
// # Matching
//
// Three matchers are available and are combined by the pipeline package:
//
//	Semantic:  cosine similarity between embeddings, see [Nearest].
//	           Scores are clamped to [0,1]; below the threshold the result is the
//	           sentinel [NoMatchLabel].
//	Fuzzy:     weighted edit-distance ratio in [0,100], see [WeightedRatio] and
//	           [BestFuzzy]. Used for structured metrics and for retrieval without
//	           an embedding model.
//	Keyword:   ordered substring table, see [KeywordAction]. Used when the
//	           semantic score is too weak to trust.
//
// # Relevance
//
// TIME observations with ranking columns receive a relevance score:
//
//	severity*0.4 + recurrence*0.2 + anomaly*0.2 + time_sensitivity*0.2
//
// Each factor maps a label to 1..5 (see [RelevanceScore]); unknown labels use the
// factor's default. The result is rounded to two decimals.
//
// # Weather post-processing
//
// After rule matching, weather observations get extracted entities
// ([ExtractEntities]), contradiction warnings ([DetectContradictions]),
// missing-gear suggestions ([MissingGear]) and cross-location item history
// ([LocationHistory]).
//
// # ID Generation
//
// Observations without an explicit ID receive a deterministic SHA-256 based ID
// of their text and fields, so reruns over the same spreadsheet produce the
// same keys downstream. See [ObservationID].
package domain
