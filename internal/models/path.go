package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/plansync/internal/validation"
)

// ErrInvalidPath is returned when a path has the wrong structural shape
// (odd segment count for a document, even for a collection) or an invalid segment.
var ErrInvalidPath = errors.New("invalid storage path")

// Path is a tagged union of DocumentPath and CollectionPath.
// Callers build the variant they mean explicitly; nothing guesses from segment counts.
type Path interface {
	Segments() []string
	String() string
	isPath()
}

// DocumentPath addresses a single document: collection/doc[/collection/doc...].
type DocumentPath struct {
	segments []string
}

// CollectionPath addresses a collection: collection[/doc/collection...].
type CollectionPath struct {
	segments []string
}

var (
	_ Path = DocumentPath{}
	_ Path = CollectionPath{}
)

// Doc builds a document path, rejecting a shape that does not address a document.
func Doc(segments ...string) (DocumentPath, error) {
	segs, err := checkSegments(segments)
	if err != nil {
		return DocumentPath{}, err
	}
	if len(segs) == 0 || len(segs)%2 != 0 {
		return DocumentPath{}, fmt.Errorf("%w: document path needs an even number of segments, got %d", ErrInvalidPath, len(segs))
	}
	return DocumentPath{segments: segs}, nil
}

// Collection builds a collection path, rejecting a shape that does not address a collection.
func Collection(segments ...string) (CollectionPath, error) {
	segs, err := checkSegments(segments)
	if err != nil {
		return CollectionPath{}, err
	}
	if len(segs)%2 != 1 {
		return CollectionPath{}, fmt.Errorf("%w: collection path needs an odd number of segments, got %d", ErrInvalidPath, len(segs))
	}
	return CollectionPath{segments: segs}, nil
}

// MustDoc is Doc for paths known to be valid at compile time.
func MustDoc(segments ...string) DocumentPath {
	p, err := Doc(segments...)
	if err != nil {
		panic(err)
	}
	return p
}

// MustCollection is Collection for paths known to be valid at compile time.
func MustCollection(segments ...string) CollectionPath {
	p, err := Collection(segments...)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseDocumentPath splits a slash separated string that the caller declares to be a document path.
func ParseDocumentPath(s string) (DocumentPath, error) {
	return Doc(splitPath(s)...)
}

// ParseCollectionPath splits a slash separated string that the caller declares to be a collection path.
func ParseCollectionPath(s string) (CollectionPath, error) {
	return Collection(splitPath(s)...)
}

func (DocumentPath) isPath() {}

// Segments returns a copy of the path segments.
func (p DocumentPath) Segments() []string { return append([]string(nil), p.segments...) }

func (p DocumentPath) String() string { return strings.Join(p.segments, "/") }

// IsZero reports whether the path was never set.
func (p DocumentPath) IsZero() bool { return len(p.segments) == 0 }

// ID returns the document identifier (last segment).
func (p DocumentPath) ID() string {
	if p.IsZero() {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the collection containing the document.
func (p DocumentPath) Parent() CollectionPath {
	if p.IsZero() {
		return CollectionPath{}
	}
	return CollectionPath{segments: append([]string(nil), p.segments[:len(p.segments)-1]...)}
}

// Collection returns a subcollection of the document.
func (p DocumentPath) Collection(name string) (CollectionPath, error) {
	return Collection(append(p.Segments(), name)...)
}

// MarshalText stores the path as its slash separated form.
func (p DocumentPath) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts an empty string as the zero path.
func (p *DocumentPath) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = DocumentPath{}
		return nil
	}
	parsed, err := ParseDocumentPath(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (CollectionPath) isPath() {}

// Segments returns a copy of the path segments.
func (p CollectionPath) Segments() []string { return append([]string(nil), p.segments...) }

func (p CollectionPath) String() string { return strings.Join(p.segments, "/") }

// IsZero reports whether the path was never set.
func (p CollectionPath) IsZero() bool { return len(p.segments) == 0 }

// Name returns the collection name (last segment).
func (p CollectionPath) Name() string {
	if p.IsZero() {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Doc returns the path of a document inside the collection.
func (p CollectionPath) Doc(id string) (DocumentPath, error) {
	return Doc(append(p.Segments(), id)...)
}

// Parent returns the document owning a subcollection; false for root collections.
func (p CollectionPath) Parent() (DocumentPath, bool) {
	if len(p.segments) < 3 {
		return DocumentPath{}, false
	}
	return DocumentPath{segments: append([]string(nil), p.segments[:len(p.segments)-1]...)}, true
}

// Contains reports whether doc is a direct child of the collection.
func (p CollectionPath) Contains(doc DocumentPath) bool {
	return !p.IsZero() && doc.Parent().String() == p.String()
}

func splitPath(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

func checkSegments(segments []string) ([]string, error) {
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if err := validation.ValidateSegment(seg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		out = append(out, seg)
	}
	return out, nil
}
