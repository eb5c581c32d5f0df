package reader

import (
	"strings"
	"unicode"
)

// Languages written right-to-left, matched against the primary subtag.
var rtlLanguages = map[string]struct{}{
	"ar":  {},
	"arc": {},
	"ckb": {},
	"dv":  {},
	"fa":  {},
	"ha":  {},
	"he":  {},
	"iw":  {},
	"ks":  {},
	"ps":  {},
	"sd":  {},
	"ug":  {},
	"ur":  {},
	"yi":  {},
}

// DetectDirection derives the text direction once, regardless of which
// extractor produced the content: language tag first, then a script-range
// heuristic over the plain text when the language is absent or unrecognized.
func DetectDirection(lang, textContent string) string {
	if lang != "" {
		primary := strings.ToLower(lang)
		if i := strings.IndexAny(primary, "-_"); i > 0 {
			primary = primary[:i]
		}
		if _, ok := rtlLanguages[primary]; ok {
			return "rtl"
		}
		return "ltr"
	}
	if scanTextIsRTL(textContent) {
		return "rtl"
	}
	return "ltr"
}

// scanTextIsRTL counts letters by script over a bounded prefix of the text;
// a right-to-left majority wins.
func scanTextIsRTL(text string) bool {
	const sampleLimit = 2048
	var rtl, ltr, seen int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if isRTLRune(r) {
			rtl++
		} else {
			ltr++
		}
		seen++
		if seen >= sampleLimit {
			break
		}
	}
	return rtl > ltr
}

func isRTLRune(r rune) bool {
	switch {
	case r >= 0x0590 && r <= 0x05FF: // Hebrew
		return true
	case r >= 0x0600 && r <= 0x06FF: // Arabic
		return true
	case r >= 0x0700 && r <= 0x074F: // Syriac
		return true
	case r >= 0x0750 && r <= 0x077F: // Arabic Supplement
		return true
	case r >= 0x08A0 && r <= 0x08FF: // Arabic Extended-A
		return true
	case r >= 0xFB1D && r <= 0xFDFF: // Hebrew/Arabic presentation forms
		return true
	case r >= 0xFE70 && r <= 0xFEFF: // Arabic Presentation Forms-B
		return true
	}
	return false
}
