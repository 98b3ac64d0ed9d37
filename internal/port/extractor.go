package port

import "doclens/internal/domain"

// Extractor turns a source document into ordered text segments plus any
// document-level metadata it can sniff. Returns domain.ErrNoText when the
// source yields no usable text.
type Extractor interface {
	Extract(path string) ([]string, domain.Metadata, error)
}
