// Package detect finds user corrections in chat messages using ordered,
// language-specific extraction patterns.
package detect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Harshitk-cp/factlearn/internal/domain"
)

// MaxMessageRunes bounds the input the detector is willing to scan.
const MaxMessageRunes = 2000

const (
	trailingPunct = ",.!?;:，。！？；：、…~〜 \t"
	quoteChars    = "\"'“”‘’「」『』《》〈〉`"
)

// sentence-final particles that follow a captured name but are not part of it
var trailingParticles = map[string][]string{
	LangJapanese: {"ですよ", "ですね", "でした", "です", "だよ", "だね"},
	LangChinese:  {"啦", "喔", "哦", "吧", "呢"},
}

type Detector struct {
	patterns []pattern
}

func New() *Detector {
	return &Detector{patterns: defaultPatterns}
}

// Detect returns the correction carried by message, or nil when there is none.
// Malformed input (empty, invalid UTF-8, oversized) is treated as no match.
func (d *Detector) Detect(message string) *domain.CorrectionCandidate {
	if !utf8.ValidString(message) {
		return nil
	}
	message = strings.TrimSpace(message)
	if message == "" || utf8.RuneCountInString(message) > MaxMessageRunes {
		return nil
	}

	for _, p := range d.patterns {
		m := p.re.FindStringSubmatch(message)
		if len(m) < 2 {
			continue
		}
		fact := clean(m[1], p.lang)
		if fact == "" {
			continue
		}
		if p.weight < WeightExplicit && !nameLike(fact) {
			continue
		}
		return &domain.CorrectionCandidate{
			Fact:       fact,
			Category:   domain.Classify(fact, message),
			Confidence: p.weight,
			Pattern:    p.name,
			Language:   p.lang,
		}
	}
	return businessName(message)
}

// businessName is the lowest-priority stage: a quoted name, a katakana shop
// name or a run of capitalized English words, in that order.
func businessName(message string) *domain.CorrectionCandidate {
	var fact string
	if m := quotedName.FindStringSubmatch(message); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				fact = clean(g, scriptLang(g))
				break
			}
		}
		if !nameLike(fact) {
			fact = ""
		}
	}
	if fact == "" {
		if m := kanaShopName.FindStringSubmatch(message); m != nil {
			fact = m[1]
		}
	}
	if fact == "" {
		if m := capitalizedName.FindStringSubmatch(message); m != nil {
			fact = m[1]
		}
	}
	if fact == "" {
		return nil
	}

	category := domain.Classify(fact, message)
	if category == domain.CategoryGeneral {
		category = domain.CategoryPlace
	}
	return &domain.CorrectionCandidate{
		Fact:       fact,
		Category:   category,
		Confidence: WeightImplicit,
		Pattern:    businessNamePattern,
		Language:   scriptLang(fact),
	}
}

// scriptLang guesses the language of a name from its script.
func scriptLang(s string) string {
	han := false
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			return LangJapanese
		case unicode.Is(unicode.Han, r):
			han = true
		}
	}
	if han {
		return LangChinese
	}
	return LangEnglish
}

// clean strips punctuation, quotes and sentence-final particles around a captured phrase.
func clean(s, lang string) string {
	s = strings.TrimSpace(s)
	for {
		prev := s
		s = strings.TrimRight(s, trailingPunct)
		for _, p := range trailingParticles[lang] {
			s = strings.TrimSuffix(s, p)
		}
		s = strings.Trim(s, quoteChars)
		s = strings.TrimSpace(s)
		if s == prev {
			return s
		}
	}
}

// nameLike reports whether s has the shape of a proper name: a capital letter,
// a digit, or a letter outside the Latin script. Weak patterns require it so
// "no, it's fine" is not taken as a correction.
func nameLike(s string) bool {
	for _, r := range s {
		switch {
		case unicode.IsUpper(r), unicode.IsDigit(r):
			return true
		case unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r):
			return true
		}
	}
	return false
}
