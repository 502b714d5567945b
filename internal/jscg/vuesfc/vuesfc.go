// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vuesfc extracts the <script> block from a Vue single-file
// component so the rest of the pipeline can parse it as plain
// JavaScript/TypeScript. A Vue SFC's top-level structure
// (<template>/<script>/<style>, none nested inside another) is regular
// enough that a small scanner suffices; a general HTML parser isn't
// needed.
package vuesfc

import (
	"fmt"
	"regexp"
	"strings"
)

// scriptOpenTag matches an opening <script ...> tag, capturing its
// attributes so Block can report whether it was `<script setup>` and
// whether it declared `lang="ts"`.
var scriptOpenTag = regexp.MustCompile(`(?is)<script\b([^>]*)>`)

var langAttr = regexp.MustCompile(`(?i)lang\s*=\s*["']?([a-zA-Z0-9]+)["']?`)

// Block is the extracted <script> content from a .vue file.
type Block struct {
	// Content is the raw text between the opening and closing script
	// tags.
	Content string
	// Lang is the tag's lang attribute ("js" if absent), lower-cased.
	Lang string
	// Setup reports whether this is a <script setup> block.
	Setup bool
	// LineOffset is the number of newlines preceding Content in the
	// original file. Adding LineOffset to a 0-based line number produced
	// by parsing Content yields the line number in the original .vue
	// file.
	LineOffset int
}

// ErrNoScript is returned by Extract when the file has no top-level
// <script> block.
var ErrNoScript = fmt.Errorf("vuesfc: no <script> block found")

// Extract finds the first top-level <script> block in a .vue file's
// source. If both a plain <script> and a <script setup> block are
// present (the documented Vue "normal script + script setup" dual-block
// form), Extract returns the <script setup> block, since that is where
// component logic lives in that pattern; pass Both to get both blocks.
func Extract(source string) (Block, error) {
	blocks := scan(source)
	if len(blocks) == 0 {
		return Block{}, ErrNoScript
	}
	for _, b := range blocks {
		if b.Setup {
			return b, nil
		}
	}
	return blocks[0], nil
}

// Both returns every top-level <script> block found, in document order.
// Most .vue files have exactly one; files using the "normal <script> for
// options + <script setup> for composition" dual-block convention have
// two.
func Both(source string) ([]Block, error) {
	blocks := scan(source)
	if len(blocks) == 0 {
		return nil, ErrNoScript
	}
	return blocks, nil
}

// scan walks source once, locating every <script ...>...</script> region
// that is not nested inside another tag's raw-text content (a Vue SFC
// never nests <script> inside <template>/<style>, so a flat scan for
// matching close tags is sufficient).
func scan(source string) []Block {
	var blocks []Block
	rest := source
	consumed := 0

	for {
		loc := scriptOpenTag.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		attrs := rest[loc[2]:loc[3]]
		tagEnd := loc[1]

		closeIdx := strings.Index(strings.ToLower(rest[tagEnd:]), "</script>")
		if closeIdx < 0 {
			// Unterminated script tag; nothing more to find.
			break
		}
		contentStart := tagEnd
		contentEnd := tagEnd + closeIdx

		content := rest[contentStart:contentEnd]
		absoluteStart := consumed + contentStart
		lineOffset := strings.Count(source[:absoluteStart], "\n")

		blocks = append(blocks, Block{
			Content:    content,
			Lang:       lang(attrs),
			Setup:      hasAttr(attrs, "setup"),
			LineOffset: lineOffset,
		})

		nextStart := contentEnd + len("</script>")
		rest = rest[nextStart:]
		consumed += nextStart
	}

	return blocks
}

func lang(attrs string) string {
	if m := langAttr.FindStringSubmatch(attrs); m != nil {
		return strings.ToLower(m[1])
	}
	return "js"
}

func hasAttr(attrs, name string) bool {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(attrs)
}

// VirtualPath returns the synthetic file path the pipeline should use
// when parsing a Block's Content, so the language-dialect selection in
// parse.Parser picks the right tree-sitter grammar.
func VirtualPath(vueFile string, b Block) string {
	ext := ".js"
	switch b.Lang {
	case "ts":
		ext = ".ts"
	case "tsx":
		ext = ".tsx"
	case "jsx":
		ext = ".jsx"
	}
	return vueFile + ".sfc" + ext
}
