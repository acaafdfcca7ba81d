package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Keyword tables are matched against normalized (case-folded, NFKC) text, so entries
// are written in lower case. Latin keywords match whole words, optionally plural;
// other scripts match anywhere.
var (
	placeKeywords = []string{
		"cafe", "café", "coffee", "roaster", "roastery", "restaurant", "bistro", "bakery",
		"shop", "store", "bookstore", "bar", "pub", "hotel", "hostel", "station", "museum",
		"temple", "shrine", "market", "street",
		"カフェ", "店", "レストラン", "焙煎所", "専門店", "駅", "神社", "寺", "喫茶",
		"咖啡", "餐廳", "餐厅", "酒吧", "飯店", "饭店", "車站", "车站",
	}
	mediaKeywords = []string{
		"book", "novel", "manga", "anime", "film", "movie", "album", "song", "series",
		"drama", "game", "podcast",
		"小説", "漫画", "アニメ", "映画", "曲", "ドラマ",
		"小說", "小说", "電影", "电影", "動畫", "动画", "歌曲", "專輯", "专辑",
	}
	personKeywords = []string{
		"sensei", "master", "teacher", "professor", "doctor", "chef", "mr", "ms", "mrs",
		"先生", "師匠", "さん", "様", "選手",
		"老師", "老师", "教授", "師傅", "师傅",
	}
)

// Classify infers the category of an extracted fact phrase. The phrase itself is
// checked first; surrounding words only decide when the phrase carries no signal.
// Pure and deterministic: ties resolve place, then media, then person.
func Classify(phrase, surrounding string) Category {
	if c, ok := classify(Normalize(phrase)); ok {
		return c
	}
	if c, ok := classify(Normalize(surrounding)); ok {
		return c
	}
	return CategoryGeneral
}

func classify(text string) (Category, bool) {
	if text == "" {
		return "", false
	}
	switch {
	case containsAny(text, placeKeywords):
		return CategoryPlace, true
	case containsAny(text, mediaKeywords):
		return CategoryMedia, true
	case containsAny(text, personKeywords):
		return CategoryPerson, true
	}
	return "", false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if latinWord(kw) {
			if containsWord(text, kw) {
				return true
			}
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func latinWord(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return true
}

// containsWord reports whether kw occurs in text as a whole word, allowing a
// plural "s" or "es" suffix.
func containsWord(text, kw string) bool {
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(kw)
		if !wordRuneBefore(text, i) && pluralOK(text[end:]) {
			return true
		}
		start = i + 1
	}
	return false
}

func pluralOK(rest string) bool {
	for _, suffix := range []string{"es", "s", ""} {
		if strings.HasPrefix(rest, suffix) && !wordRuneAt(rest, len(suffix)) {
			return true
		}
	}
	return false
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
