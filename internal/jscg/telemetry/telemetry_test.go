// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStartStageReturnsContextAndEndFunc(t *testing.T) {
	ctx, end := StartStage(context.Background(), "parse")
	if ctx == nil {
		t.Fatalf("expected a non-nil context")
	}
	end(nil)
}

func TestInitStdoutTracingEmitsSpanJSON(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitStdoutTracing(&buf)
	if err != nil {
		t.Fatalf("InitStdoutTracing: %v", err)
	}
	_, end := StartStage(context.Background(), "extract")
	end(nil)
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "jscg.extract") {
		t.Errorf("expected the exported span JSON to mention the stage name, got %q", buf.String())
	}
}
