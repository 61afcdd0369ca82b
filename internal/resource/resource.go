// Package resource defines the document model managed by a DMF workspace:
// resources, the typed relations between them, and their attached data files.
package resource

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Type classifies a resource. Fixed at creation.
type Type string

const (
	TypeCode       Type = "code"
	TypeData       Type = "data"
	TypeNotebook   Type = "notebook"
	TypeFlowsheet  Type = "flowsheet"
	TypeExperiment Type = "experiment"
	TypeTabular    Type = "tabular"
	TypeJSON       Type = "json"
	TypeOther      Type = "other"
)

// Types lists every valid resource type, in display order.
func Types() []Type {
	return []Type{
		TypeCode, TypeData, TypeNotebook, TypeFlowsheet,
		TypeExperiment, TypeTabular, TypeJSON, TypeOther,
	}
}

// ValidType reports whether t is one of the enumerated resource types.
func ValidType(t Type) bool {
	for _, k := range Types() {
		if t == k {
			return true
		}
	}
	return false
}

// Role says which side of a relation a resource occupies.
type Role string

const (
	RoleSubject Role = "subject"
	RoleObject  Role = "object"
)

// Relation is the per-resource half of a mirrored relation. Identifier names
// the OTHER endpoint; Role says which side this resource is, so direction is
// recoverable from whichever side is being read.
type Relation struct {
	Predicate  Predicate `json:"predicate" validate:"required"`
	Identifier string    `json:"identifier" validate:"required"`
	Role       Role      `json:"role" validate:"required,oneof=subject object"`
}

// Triple is a fully-directed relation (subject, predicate, object).
type Triple struct {
	Subject   string    `json:"subject"`
	Predicate Predicate `json:"predicate"`
	Object    string    `json:"object"`
}

func (t Triple) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", t.Subject, t.Predicate, t.Object)
}

// DataFile records one file associated with a resource. Copied files store a
// path relative to the workspace files directory plus the SHA-1 taken at copy
// time; referenced files keep their external absolute path and no hash.
type DataFile struct {
	Path   string `json:"path" validate:"required"`
	Desc   string `json:"desc,omitempty"`
	SHA1   string `json:"sha1,omitempty"`
	IsCopy bool   `json:"is_copy"`
}

// Resource is the managed document. ID is unique and immutable after
// creation; Type is fixed at creation. Data holds the free-form value.
type Resource struct {
	ID        string                 `json:"id" validate:"required,len=32,hexadecimal"`
	Type      Type                   `json:"type" validate:"required"`
	Aliases   []string               `json:"aliases"`
	Tags      []string               `json:"tags"`
	Desc      string                 `json:"desc,omitempty"`
	Created   time.Time              `json:"created"`
	Modified  time.Time              `json:"modified"`
	Relations []Relation             `json:"relations"`
	DataFiles []DataFile             `json:"datafiles"`
	Data      map[string]interface{} `json:"data"`
}

// NewID generates a fresh resource identifier: 32 lowercase hex characters.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// New creates a resource of the given type with a generated id and
// initialized collections.
func New(t Type) *Resource {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Resource{
		ID:        NewID(),
		Type:      t,
		Aliases:   []string{},
		Tags:      []string{},
		Relations: []Relation{},
		DataFiles: []DataFile{},
		Data:      map[string]interface{}{},
		Created:   now,
		Modified:  now,
	}
}

// Name returns the resource's primary name: the first alias, or "" if the
// resource is anonymous.
func (r *Resource) Name() string {
	if len(r.Aliases) > 0 {
		return r.Aliases[0]
	}
	return ""
}

// Touch bumps the modification timestamp.
func (r *Resource) Touch() {
	r.Modified = time.Now().UTC().Truncate(time.Millisecond)
}

// HasRelation reports whether the resource already carries the given half.
func (r *Resource) HasRelation(rel Relation) bool {
	for _, have := range r.Relations {
		if have == rel {
			return true
		}
	}
	return false
}

// Triples expands the resource's relation records into directed triples.
// Outgoing selects the edges where this resource is the subject; otherwise
// the edges where it is the object.
func (r *Resource) Triples(outgoing bool) []Triple {
	var out []Triple
	for _, rel := range r.Relations {
		switch {
		case outgoing && rel.Role == RoleSubject:
			out = append(out, Triple{Subject: r.ID, Predicate: rel.Predicate, Object: rel.Identifier})
		case !outgoing && rel.Role == RoleObject:
			out = append(out, Triple{Subject: rel.Identifier, Predicate: rel.Predicate, Object: r.ID})
		}
	}
	return out
}

// Doc renders the resource as a generic nested document, the shape filter
// matching and meta projection operate on.
func (r *Resource) Doc() (map[string]interface{}, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource %s: %w", r.ID, err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode resource %s: %w", r.ID, err)
	}
	return doc, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the document invariants: id shape, enumerated type, and
// well-formed relation records.
func (r *Resource) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid resource: %w", err)
	}
	if !ValidType(r.Type) {
		return fmt.Errorf("invalid resource type %q", r.Type)
	}
	for _, rel := range r.Relations {
		if !ValidPredicate(rel.Predicate) {
			return fmt.Errorf("invalid predicate %q on resource %s", rel.Predicate, r.ID)
		}
	}
	return nil
}
