// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"fmt"
	"log/slog"
)

// NodeKind classifies a structure graph node.
type NodeKind string

const (
	NodeKindFunction NodeKind = "function"
	NodeKindClass    NodeKind = "class"
	NodeKindModule   NodeKind = "module"
)

// LinkKind classifies a structure graph edge.
type LinkKind string

const (
	LinkKindCalls    LinkKind = "calls"
	LinkKindImports  LinkKind = "imports"
	LinkKindInherits LinkKind = "inherits"
	LinkKindBelongs  LinkKind = "belongs_to"
)

// StructureNode is one symbol in the code structure graph. IsCore
// marks symbols defined in the analyzed tree, as opposed to external
// dependencies pulled in by imports.
type StructureNode struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Kind   NodeKind `json:"type"`
	IsCore bool     `json:"is_core"`
}

// StructureLink is one directed relationship between two nodes.
type StructureLink struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   LinkKind `json:"type"`
}

// StructureGraph is the payload of GET /api/code-structure/{indexId}.
type StructureGraph struct {
	Nodes []StructureNode `json:"nodes"`
	Links []StructureLink `json:"links"`
}

// Validate checks the delivery-boundary invariant: every link's source
// and target must exist among the delivered nodes.
func (g *StructureGraph) Validate() error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	for _, l := range g.Links {
		if _, ok := ids[l.Source]; !ok {
			return fmt.Errorf("link %s -> %s: unknown source node", l.Source, l.Target)
		}
		if _, ok := ids[l.Target]; !ok {
			return fmt.Errorf("link %s -> %s: unknown target node", l.Source, l.Target)
		}
	}
	return nil
}

// Sanitize drops links whose endpoints are not among the nodes, so the
// delivered payload always satisfies Validate. Dropped links are
// logged, not treated as errors; the analyzer may legitimately record
// a call to a symbol it never resolved.
func (g *StructureGraph) Sanitize() {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	kept := g.Links[:0]
	for _, l := range g.Links {
		_, srcOK := ids[l.Source]
		_, dstOK := ids[l.Target]
		if srcOK && dstOK {
			kept = append(kept, l)
			continue
		}
		slog.Debug("dropping dangling structure link",
			"source", l.Source, "target", l.Target, "kind", string(l.Kind))
	}
	g.Links = kept
}
