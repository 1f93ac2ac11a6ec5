// Package errors defines error types for the Unity bridge.
//
// This package provides structured error types for every way a bridge round
// trip can fail. All error types support error unwrapping and can be checked
// using errors.Is and errors.As.
package errors
