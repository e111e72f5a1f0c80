package services

import "fmt"

// UploadError reports an artifact store failure (segment upload, source
// fetch, or signed URL minting).
type UploadError struct {
	Op     string
	Object string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("artifact store %s failed for %s: %v", e.Op, e.Object, e.Err)
	}
	return fmt.Sprintf("artifact store %s failed: %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError reports a staging record write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("staging record %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
