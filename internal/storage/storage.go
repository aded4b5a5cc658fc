// Package storage keeps uploaded payment proofs in object storage.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object describes an uploaded blob.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// ProofStorage stores payment proof documents.
type ProofStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (Object, error)
}

// ProofKey builds the object key for a payment proof, keeping the upload's extension.
func ProofKey(paymentID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "payments/" + paymentID + "/" + uuid.NewString() + ext
}
