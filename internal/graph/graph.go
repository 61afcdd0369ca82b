// Package graph creates relations between resources and traverses the
// resulting graph. Relations are mirrored adjacency lists: each endpoint
// carries a half-record naming the other endpoint and its own role, so
// traversal in either direction needs only the resource at hand.
package graph

import (
	"errors"
	"fmt"

	"dmf/internal/logging"
	"dmf/internal/resource"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	// ErrBadPredicate is returned for a predicate outside the enumerated set.
	ErrBadPredicate = errors.New("unknown predicate")
	// ErrSelfRelation is returned when subject and object are the same resource.
	ErrSelfRelation = errors.New("relation endpoints must differ")
	// ErrDuplicate is returned when the triple already exists.
	ErrDuplicate = errors.New("relation already exists")
)

// CreateRelation validates the predicate and appends the mirrored half-records
// to both resources' in-memory relation lists. It does NOT persist anything:
// the caller stages both resources on the store and flushes with Update.
func CreateRelation(subject, object *resource.Resource, pred resource.Predicate) error {
	if !resource.ValidPredicate(pred) {
		return fmt.Errorf("%w: %q (want one of %v)", ErrBadPredicate, pred, resource.Predicates())
	}
	if subject.ID == object.ID {
		return fmt.Errorf("%w: %s", ErrSelfRelation, subject.ID)
	}

	subjHalf := resource.Relation{Predicate: pred, Identifier: object.ID, Role: resource.RoleSubject}
	objHalf := resource.Relation{Predicate: pred, Identifier: subject.ID, Role: resource.RoleObject}

	if subject.HasRelation(subjHalf) || object.HasRelation(objHalf) {
		return fmt.Errorf("%w: %s -[%s]-> %s", ErrDuplicate, subject.ID, pred, object.ID)
	}

	subject.Relations = append(subject.Relations, subjHalf)
	object.Relations = append(object.Relations, objHalf)

	logging.Relation("Created relation %s -[%s]-> %s (pending flush)", subject.ID, pred, object.ID)
	return nil
}

// Getter resolves resource ids during traversal. *store.Store satisfies it.
type Getter interface {
	Get(id string) (*resource.Resource, bool)
}

// Options controls a traversal.
type Options struct {
	// Outgoing follows subject->object edges when true, the reverse otherwise.
	Outgoing bool
	// MaxDepth caps traversal depth; 0 means unbounded (the visited set still
	// terminates cycles).
	MaxDepth int
	// Meta names the fields of each discovered resource to materialize in the
	// hit, e.g. "aliases", "type", "tags". Empty means no metadata.
	Meta []string
}

// Hit is one discovered relation: the depth it was found at, the full triple,
// and the selected metadata of the resource at the far end of the edge.
type Hit struct {
	Depth  int
	Triple resource.Triple
	Meta   map[string]interface{}
}

// Related walks the relation graph breadth-first from r, yielding one Hit per
// discovered edge. Endpoints whose documents are missing from the store are
// skipped rather than failing the traversal (dangling relations are an
// expected state between a remove and a flush).
func Related(g Getter, r *resource.Resource, opts Options) ([]Hit, error) {
	logging.RelationDebug("Traversing from %s (outgoing=%v maxdepth=%d)", r.ID, opts.Outgoing, opts.MaxDepth)

	type queueItem struct {
		res   *resource.Resource
		depth int
	}

	visited := mapset.NewSet[string](r.ID)
	queue := []queueItem{{res: r, depth: 0}}
	var hits []Hit

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if opts.MaxDepth > 0 && item.depth >= opts.MaxDepth {
			continue
		}

		for _, t := range item.res.Triples(opts.Outgoing) {
			nextID := t.Object
			if !opts.Outgoing {
				nextID = t.Subject
			}

			next, ok := g.Get(nextID)
			if !ok {
				logging.RelationDebug("Skipping dangling relation endpoint %s", nextID)
				continue
			}

			meta, err := selectMeta(next, opts.Meta)
			if err != nil {
				return nil, err
			}
			hits = append(hits, Hit{Depth: item.depth + 1, Triple: t, Meta: meta})

			if visited.Add(nextID) {
				queue = append(queue, queueItem{res: next, depth: item.depth + 1})
			}
		}
	}

	logging.RelationDebug("Traversal from %s found %d relations", r.ID, len(hits))
	return hits, nil
}

// selectMeta projects the named fields out of the resource document, so
// traversal results don't carry full documents.
func selectMeta(r *resource.Resource, fields []string) (map[string]interface{}, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	doc, err := r.Doc()
	if err != nil {
		return nil, err
	}
	meta := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			meta[f] = v
		}
	}
	return meta, nil
}
