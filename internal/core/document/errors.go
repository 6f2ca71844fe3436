package document

import "errors"

var (
	ErrDocumentNotFound = errors.New("document: not found")
	ErrInvalidID        = errors.New("document: invalid id")
	ErrInvalidRequestID = errors.New("document: invalid leave request id")
	ErrInvalidFileName  = errors.New("document: invalid file name")
	ErrEmptyContent     = errors.New("document: content is empty")
	ErrTooLarge         = errors.New("document: content exceeds size limit")
)
