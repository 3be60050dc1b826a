package xbuf

import "fmt"

// Relation is an undirected association between two entities.
// Ref1 always belongs to the entity whose type tag sorts first.
type Relation struct {
	Type1 string
	Ref1  string
	Type2 string
	Ref2  string
}

// NewRelation builds the canonical relation between (typeA, idA) and (typeB, idB).
// Equal tags keep the call order, so parent-first callers get Ref1 = parent.
func NewRelation(typeA, idA, typeB, idB string) Relation {
	if typeA <= typeB {
		return Relation{Type1: typeA, Ref1: idA, Type2: typeB, Ref2: idB}
	}
	return Relation{Type1: typeB, Ref1: idB, Type2: typeA, Ref2: idA}
}

// Batch is everything produced by one export cycle.
type Batch struct {
	Nodes        []Node
	Meshes       []Mesh
	Materials    []Material
	Lights       []Light
	Skeletons    []Skeleton
	Animations   []AnimationClip
	CustomParams []CustomParams
	Relations    []Relation

	// Warnings collects the non-fatal problems met while exporting. Not serialized.
	Warnings []string

	seen map[Relation]struct{}
}

// AddRelation records the canonical relation, ignoring exact duplicates.
func (b *Batch) AddRelation(typeA, idA, typeB, idB string) {
	rel := NewRelation(typeA, idA, typeB, idB)
	if b.seen == nil {
		b.seen = make(map[Relation]struct{})
	}
	if _, ok := b.seen[rel]; ok {
		return
	}
	b.seen[rel] = struct{}{}
	b.Relations = append(b.Relations, rel)
}

// Warnf records a non-fatal export problem.
func (b *Batch) Warnf(format string, args ...any) {
	b.Warnings = append(b.Warnings, fmt.Sprintf(format, args...))
}

// EntityCount returns the number of entity records, relations excluded.
func (b *Batch) EntityCount() int {
	return len(b.Nodes) + len(b.Meshes) + len(b.Materials) + len(b.Lights) +
		len(b.Skeletons) + len(b.Animations) + len(b.CustomParams)
}

// Empty reports whether the batch carries neither entities nor relations.
func (b *Batch) Empty() bool {
	return b.EntityCount() == 0 && len(b.Relations) == 0
}
