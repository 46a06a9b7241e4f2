// Package arbiter decides between geographic evidence, the trained model and
// the distance-only fallback. Two policies are available: HighConfidence,
// which walks count-based evidence tiers, and Base, which blends the model
// with geographic evidence according to the geographic confidence. They use
// different method tags and blend ratios and are never mixed.
package arbiter
