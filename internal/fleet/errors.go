package fleet

import "errors"

// Sentinel errors for fleet document handling.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, fleet.ErrInvalidDocument) {
//	    // Reject the document, keep the previous fleet live
//	}
var (
	// ErrInvalidDocument indicates the fleet document is malformed or
	// inconsistent. The document is rejected wholesale.
	ErrInvalidDocument = errors.New("fleet: invalid document")

	// ErrSaveFailed indicates a disk write failed. The in-memory state
	// remains authoritative and the write is retried on the next flush
	// cycle.
	ErrSaveFailed = errors.New("fleet: save failed")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("fleet: store closed")
)
