// Package embedding turns utterances into vectors comparable with the
// emotion index.
package embedding

import (
	"context"
	"errors"

	"emotion-diary-be/pkg/index"
)

// ErrEncoding wraps every failure to produce a vector for an utterance.
var ErrEncoding = errors.New("embedding failed")

// Encoder maps text to a vector of the index dimension.
type Encoder interface {
	Encode(ctx context.Context, text string) (index.Vector, error)
}
