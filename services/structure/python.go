// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package structure

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// addPythonFile extracts symbols from one Python source file. Caller
// holds b.mu.
//
// Classes carry inherits edges to their base classes, methods carry
// belongs_to edges to their class, and imports create module nodes.
func (b *Builder) addPythonFile(ctx context.Context, relPath string, content []byte) error {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("tree-sitter parse %s: %w", relPath, err)
	}
	defer tree.Close()

	moduleName := strings.TrimSuffix(path.Base(relPath), ".py")
	modID := b.ensureCoreModule(moduleName)

	b.pyWalk(tree.RootNode(), content, modID, "", "")
	return nil
}

// pyWalk descends the tree carrying the enclosing module, class and
// function node ids.
func (b *Builder) pyWalk(n *sitter.Node, content []byte, modID, classID, funcID string) {
	switch n.Type() {
	case "import_statement", "import_from_statement":
		b.pyImport(n, content, modID)
		return

	case "class_definition":
		name := n.ChildByFieldName("name")
		if name == nil {
			return
		}
		id := b.addNode(name.Content(content), "class", true)
		b.classes[name.Content(content)] = id
		b.addLink(id, modID, "belongs_to")
		if bases := n.ChildByFieldName("superclasses"); bases != nil {
			for i := 0; i < int(bases.NamedChildCount()); i++ {
				base := bases.NamedChild(i)
				if base.Type() == "identifier" {
					b.deferLink(id, base.Content(content), "inherits")
				}
			}
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.pyWalk(body, content, modID, id, funcID)
		}
		return

	case "function_definition":
		name := n.ChildByFieldName("name")
		if name == nil {
			return
		}
		id := b.addNode(name.Content(content), "function", true)
		b.funcIDs[name.Content(content)] = id
		if classID != "" {
			b.addLink(id, classID, "belongs_to")
		} else {
			b.addLink(id, modID, "belongs_to")
		}
		if body := n.ChildByFieldName("body"); body != nil {
			b.pyWalk(body, content, modID, classID, id)
		}
		return

	case "call":
		if funcID != "" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				switch fn.Type() {
				case "identifier":
					b.deferLink(funcID, fn.Content(content), "calls")
				case "attribute":
					if obj := fn.ChildByFieldName("object"); obj != nil && obj.Type() == "identifier" {
						b.deferLink(funcID, obj.Content(content), "calls")
					}
				}
			}
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.pyWalk(n.NamedChild(i), content, modID, classID, funcID)
	}
}

// pyImport records module nodes for import and from-import
// statements, keyed by the root package segment.
func (b *Builder) pyImport(n *sitter.Node, content []byte, modID string) {
	register := func(dotted string) {
		root := dotted
		if i := strings.IndexByte(dotted, '.'); i >= 0 {
			root = dotted[:i]
		}
		if root == "" {
			return
		}
		id := b.ensureModule(root)
		b.addLink(modID, id, "imports")
	}

	if n.Type() == "import_from_statement" {
		if mod := n.ChildByFieldName("module_name"); mod != nil {
			register(mod.Content(content))
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			register(child.Content(content))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				register(name.Content(content))
			}
		}
	}
}
