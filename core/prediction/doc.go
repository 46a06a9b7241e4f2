// Package prediction wraps a pre-trained price regressor. It builds feature
// vectors in the order recorded in the model metadata, applies the persisted
// standard scaler and evaluates the regressor. The model confidence is a
// fixed constant and is never derived from model internals.
package prediction
