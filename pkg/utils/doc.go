// Package utils holds small concurrency helpers shared by the extraction
// strategies: panic recovery for worker goroutines and slice batching.
package utils
