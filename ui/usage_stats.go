package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"reading-gen/llm"
)

// newUsageLabel shows the token totals of this session's completions
func (a *App) newUsageLabel() *widget.Label {
	label := widget.NewLabel(usageText(a.completer.Usage()))
	label.Wrapping = fyne.TextWrapWord
	return label
}

func usageText(u llm.Usage) string {
	if u.Requests == 0 {
		return "No completions requested this session"
	}
	return fmt.Sprintf("This session: %d completion(s), %d prompt tokens, %d completion tokens",
		u.Requests, u.PromptTokens, u.CompletionTokens)
}
