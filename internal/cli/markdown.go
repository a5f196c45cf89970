// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders the model's final answers. Nil when
// initialization fails; output falls back to plain text.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display, returning the
// content unchanged when rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayAnswer prints a final answer, rendering markdown only on a
// TTY so piped output stays clean.
func displayAnswer(content string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(content))
	} else {
		fmt.Println(content)
	}
}
