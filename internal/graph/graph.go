// Package graph resolves the name-based associations between declarations
// of one file and lists them as relations.
package graph

import (
	"sort"

	"github.com/phobologic/filemap/internal/model"
)

// Relation kinds.
const (
	Implements = "implements"
	MethodOf   = "method-of"
	MemberOf   = "member-of"
)

// Relation links two declarations of the same file by name.
type Relation struct {
	Kind     string `json:"kind" yaml:"kind"`
	From     string `json:"from" yaml:"from"`
	FromLine int    `json:"from_line" yaml:"from_line"`
	To       string `json:"to" yaml:"to"`
	ToLine   int    `json:"to_line" yaml:"to_line"`
}

var (
	traitKinds = kindSet(model.Trait)
	typeKinds  = kindSet(model.Struct, model.Enum, model.TypeAlias, model.Trait)
	ownerKinds = kindSet(model.Struct, model.Enum, model.Trait, model.TypeAlias, model.Module)
)

func kindSet(kinds ...model.Kind) map[model.Kind]struct{} {
	m := make(map[model.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		m[k] = struct{}{}
	}
	return m
}

// index maps a name to the first line declaring it with one of a set of
// kinds.
type index map[string]int

func buildIndex(decls []model.Declaration, kinds map[model.Kind]struct{}) index {
	idx := make(index)
	for i := range decls {
		d := &decls[i]
		if _, ok := kinds[d.Kind]; !ok || d.Name == "" {
			continue
		}
		if line, seen := idx[d.Name]; !seen || d.Span.Start.Line < line {
			idx[d.Name] = d.Span.Start.Line
		}
	}
	return idx
}

// Resolve fills the *Line fields of each declaration's associations with
// the line of the first local declaration of that name. Names declared
// elsewhere keep line 0.
func Resolve(decls []model.Declaration) {
	traits := buildIndex(decls, traitKinds)
	types := buildIndex(decls, typeKinds)
	owners := buildIndex(decls, ownerKinds)
	for i := range decls {
		a := &decls[i].Assoc
		if a.Trait != "" {
			a.TraitLine = traits[a.Trait]
		}
		if a.Target != "" {
			a.TargetLine = types[a.Target]
		}
		if a.Parent != "" {
			a.ParentLine = owners[a.Parent]
		}
	}
}

// Relations lists the resolved associations of decls, sorted by source
// line then kind. Associations to names not declared in the file are left
// out.
func Relations(decls []model.Declaration) []Relation {
	var rels []Relation
	seen := make(map[Relation]struct{})
	add := func(r Relation) {
		if r.ToLine == 0 {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		rels = append(rels, r)
	}

	for i := range decls {
		d := &decls[i]
		a := d.Assoc
		line := d.Span.Start.Line
		switch {
		case d.Kind == model.ImplBlock:
			if a.Trait != "" && a.Target != "" {
				add(Relation{Kind: Implements, From: a.Target, FromLine: line, To: a.Trait, ToLine: a.TraitLine})
			}
		case d.Kind == model.Function && a.Target != "":
			add(Relation{Kind: MethodOf, From: d.Name, FromLine: line, To: a.Target, ToLine: a.TargetLine})
		case d.Kind == model.Function && a.Parent != "":
			add(Relation{Kind: MethodOf, From: d.Name, FromLine: line, To: a.Parent, ToLine: a.ParentLine})
		case a.Parent != "":
			add(Relation{Kind: MemberOf, From: d.Name, FromLine: line, To: a.Parent, ToLine: a.ParentLine})
		}
	}

	sort.SliceStable(rels, func(i, j int) bool {
		if rels[i].FromLine != rels[j].FromLine {
			return rels[i].FromLine < rels[j].FromLine
		}
		return rels[i].Kind < rels[j].Kind
	})
	return rels
}

// Implementors returns, for each locally declared trait, the sorted names of
// the types implementing it in this file.
func Implementors(decls []model.Declaration) map[string][]string {
	impls := make(map[string]map[string]struct{})
	for i := range decls {
		a := decls[i].Assoc
		if decls[i].Kind != model.ImplBlock || a.Trait == "" || a.TraitLine == 0 || a.Target == "" {
			continue
		}
		if impls[a.Trait] == nil {
			impls[a.Trait] = make(map[string]struct{})
		}
		impls[a.Trait][a.Target] = struct{}{}
	}
	out := make(map[string][]string, len(impls))
	for trait, targets := range impls {
		out[trait] = sortedKeys(targets)
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
