// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package structure extracts the code structure graph from source
// files: functions, classes and modules as nodes, with calls, imports,
// inherits and belongs_to relationships as links.
//
// Tree-sitter grammars for Go and Python are supported; files in other
// languages contribute nothing and are silently skipped. Symbols
// defined in the analyzed tree are marked core; modules pulled in by
// imports are not.
package structure

import (
	"context"
	"fmt"
	"sync"

	"github.com/AleutianAI/codescope/services/indexer/datatypes"
)

// pendingLink is a relationship recorded by name before its target
// node is known. Resolution happens at Graph time, once every file
// has contributed its symbols.
type pendingLink struct {
	fromID string
	toName string
	kind   datatypes.LinkKind
}

// Builder accumulates the structure graph across files of one index.
//
// Thread Safety:
//
//	Safe for concurrent use; AddFile and Graph share one mutex. In
//	practice the job runner feeds files sequentially.
type Builder struct {
	mu      sync.Mutex
	nodes   []datatypes.StructureNode
	links   []datatypes.StructureLink
	nextID  int
	funcIDs map[string]string
	classes map[string]string
	modules map[string]string
	pending []pendingLink
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		funcIDs: make(map[string]string),
		classes: make(map[string]string),
		modules: make(map[string]string),
	}
}

// AddFile parses one source file and merges its symbols into the
// graph. Unsupported extensions are skipped without error; parse
// failures surface so the job runner can decide what to do.
func (b *Builder) AddFile(ctx context.Context, relPath string, content []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case hasSuffix(relPath, ".go"):
		return b.addGoFile(ctx, relPath, content)
	case hasSuffix(relPath, ".py"):
		return b.addPythonFile(ctx, relPath, content)
	default:
		return nil
	}
}

// Graph resolves pending relationships and returns the accumulated
// graph. Links whose endpoints never materialized are dropped; the
// returned payload always satisfies the delivery invariant.
func (b *Builder) Graph() *datatypes.StructureGraph {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := &datatypes.StructureGraph{
		Nodes: append([]datatypes.StructureNode(nil), b.nodes...),
		Links: append([]datatypes.StructureLink(nil), b.links...),
	}
	for _, p := range b.pending {
		if target, ok := b.resolve(p.toName); ok && target != p.fromID {
			g.Links = append(g.Links, datatypes.StructureLink{
				Source: p.fromID,
				Target: target,
				Kind:   p.kind,
			})
		}
	}
	g.Links = dedupeLinks(g.Links)
	g.Sanitize()
	return g
}

// resolve maps a symbol name to a node id, preferring locally defined
// functions and classes over imported modules.
func (b *Builder) resolve(name string) (string, bool) {
	if id, ok := b.funcIDs[name]; ok {
		return id, true
	}
	if id, ok := b.classes[name]; ok {
		return id, true
	}
	if id, ok := b.modules[name]; ok {
		return id, true
	}
	return "", false
}

// addNode appends a node and returns its id. Caller holds b.mu.
func (b *Builder) addNode(name string, kind datatypes.NodeKind, core bool) string {
	b.nextID++
	var prefix string
	switch kind {
	case datatypes.NodeKindFunction:
		prefix = "func"
	case datatypes.NodeKindClass:
		prefix = "class"
	default:
		prefix = "module"
	}
	id := fmt.Sprintf("%s_%d", prefix, b.nextID)
	b.nodes = append(b.nodes, datatypes.StructureNode{
		ID:     id,
		Name:   name,
		Kind:   kind,
		IsCore: core,
	})
	return id
}

// ensureModule returns the node id for an imported module, creating
// the node on first sight. Imported modules are not core.
func (b *Builder) ensureModule(name string) string {
	if id, ok := b.modules[name]; ok {
		return id
	}
	id := b.addNode(name, datatypes.NodeKindModule, false)
	b.modules[name] = id
	return id
}

// ensureCoreModule returns the node id for a module defined by the
// analyzed tree itself (a Go package, a Python file).
func (b *Builder) ensureCoreModule(name string) string {
	if id, ok := b.modules[name]; ok {
		return id
	}
	id := b.addNode(name, datatypes.NodeKindModule, true)
	b.modules[name] = id
	return id
}

func (b *Builder) addLink(from, to string, kind datatypes.LinkKind) {
	if from == "" || to == "" || from == to {
		return
	}
	b.links = append(b.links, datatypes.StructureLink{Source: from, Target: to, Kind: kind})
}

func (b *Builder) deferLink(from, toName string, kind datatypes.LinkKind) {
	if from == "" || toName == "" {
		return
	}
	b.pending = append(b.pending, pendingLink{fromID: from, toName: toName, kind: kind})
}

func dedupeLinks(links []datatypes.StructureLink) []datatypes.StructureLink {
	seen := make(map[datatypes.StructureLink]struct{}, len(links))
	out := links[:0]
	for _, l := range links {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func hasSuffix(path, suffix string) bool {
	return len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix
}
