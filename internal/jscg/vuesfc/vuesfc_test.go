// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vuesfc

import (
	"strings"
	"testing"
)

func TestExtractPlainScript(t *testing.T) {
	src := "<template>\n  <div>{{ msg }}</div>\n</template>\n<script>\nexport default { data() { return { msg: 'hi' } } }\n</script>\n"
	block, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if block.Setup {
		t.Errorf("expected Setup=false for a plain <script> block")
	}
	if !strings.Contains(block.Content, "export default") {
		t.Errorf("expected extracted content to contain the script body, got %q", block.Content)
	}
	if block.Lang != "js" {
		t.Errorf("expected default lang js, got %q", block.Lang)
	}
}

func TestExtractPrefersScriptSetup(t *testing.T) {
	src := "<script>\nexport default {}\n</script>\n<script setup lang=\"ts\">\nconst x: number = 1\n</script>\n"
	block, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !block.Setup {
		t.Errorf("expected the setup block to be preferred")
	}
	if block.Lang != "ts" {
		t.Errorf("expected lang ts, got %q", block.Lang)
	}
	if strings.Contains(block.Content, "export default") {
		t.Errorf("expected the non-setup block's content to be excluded, got %q", block.Content)
	}
}

func TestBothReturnsEveryBlockInOrder(t *testing.T) {
	src := "<script>\nconst a = 1\n</script>\n<template></template>\n<script setup>\nconst b = 2\n</script>\n"
	blocks, err := Both(src)
	if err != nil {
		t.Fatalf("Both: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Setup {
		t.Errorf("expected the first block to be the non-setup one")
	}
	if !blocks[1].Setup {
		t.Errorf("expected the second block to be the setup one")
	}
}

func TestExtractNoScriptBlock(t *testing.T) {
	_, err := Extract("<template><div/></template>\n")
	if err != ErrNoScript {
		t.Fatalf("expected ErrNoScript, got %v", err)
	}
}

func TestLineOffsetAccountsForPrecedingMarkup(t *testing.T) {
	src := "<template>\n  <div/>\n</template>\n\n<script>\nconst x = 1\n</script>\n"
	block, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// LineOffset counts the newlines preceding the script tag's content,
	// i.e. the three lines of template markup and the blank line after it.
	if block.LineOffset != 4 {
		t.Errorf("expected LineOffset 4, got %d", block.LineOffset)
	}
}

func TestVirtualPathMapsLangToExtension(t *testing.T) {
	block := Block{Lang: "ts", Setup: true}
	got := VirtualPath("component.vue", block)
	if !strings.HasSuffix(got, ".sfc.ts") {
		t.Errorf("expected a .sfc.ts suffix, got %q", got)
	}
}
