package schedule

import (
	"regexp"
	"strings"
)

// Section labels emitted by the grid classifier and found in provider
// text. LabelOff marks guaranteed outages, LabelPossible uncertain ones.
const (
	LabelOff      = "Вимкнено:"
	LabelPossible = "Можливо вимкнено:"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	dashVariantRe = regexp.MustCompile(`[–—−]`)
	commaZRe      = regexp.MustCompile(`,\s*з\s+`)
	bareZRe       = regexp.MustCompile(`з\s+`)
	doRe          = regexp.MustCompile(`\s+до\s+`)
	trailingSepRe = regexp.MustCompile(`;\s*$`)
)

// Normalize canonicalizes raw schedule text so that textually different
// but semantically equal schedules compare equal. The rewrite order
// matters: ", з " must become "; " before the bare "з " preposition is
// stripped, otherwise the comma form is destroyed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.TrimSpace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = dashVariantRe.ReplaceAllString(text, "-")
	text = commaZRe.ReplaceAllString(text, "; ")
	text = bareZRe.ReplaceAllString(text, "")
	text = doRe.ReplaceAllString(text, "-")
	text = trailingSepRe.ReplaceAllString(text, "")

	if strings.Contains(text, LabelOff) || strings.Contains(text, LabelPossible) {
		text = joinLabeledSections(text)
	}
	return text
}

// joinLabeledSections rewrites "Вимкнено: A; Можливо вимкнено: B" into
// "A; B" so downstream parsing only ever sees at most one semicolon.
// The possible label is located first: LabelOff is a substring of
// LabelPossible, so the reverse order would split inside the label.
// The semicolon survives even with an empty off part ("; B"), keeping
// possible-only text on the possible side of the split.
func joinLabeledSections(text string) string {
	possible := ""
	if i := strings.Index(text, LabelPossible); i >= 0 {
		possible = strings.TrimSpace(text[i+len(LabelPossible):])
		text = text[:i]
	}
	off := ""
	if i := strings.Index(text, LabelOff); i >= 0 {
		off = strings.TrimSpace(text[i+len(LabelOff):])
		off = trailingSepRe.ReplaceAllString(off, "")
	}

	if possible != "" {
		return off + "; " + possible
	}
	return off
}

// ToIntervalSet parses normalized schedule text into guaranteed and
// possible interval lists. Text without a semicolon is entirely
// guaranteed; otherwise the first part is guaranteed and the second
// possible.
func ToIntervalSet(text string) IntervalSet {
	set := IntervalSet{}
	if strings.TrimSpace(text) == "" {
		return set
	}
	parts := strings.SplitN(text, ";", 2)
	set.Guaranteed = MergeConsecutive(ParseIntervals(parts[0]))
	if len(parts) > 1 {
		set.Possible = MergeConsecutive(ParseIntervals(parts[1]))
	}
	return set
}
