package detect

import "regexp"

const (
	// WeightExplicit is used for patterns that name the thing outright ("it's called X").
	WeightExplicit = 0.8
	// WeightImplicit is used for weaker corrections ("actually, it's X").
	WeightImplicit = 0.6
)

const (
	LangEnglish  = "en"
	LangChinese  = "zh"
	LangJapanese = "ja"
)

// phrase captures up to the next sentence terminator.
const phrase = `([^.!?;。！？；\n]+)`

type pattern struct {
	name   string
	lang   string
	re     *regexp.Regexp
	weight float64
}

func newPattern(name, lang, expr string, weight float64) pattern {
	return pattern{name: name, lang: lang, re: regexp.MustCompile(expr), weight: weight}
}

// defaultPatterns is evaluated in order; the first pattern yielding a usable
// phrase wins regardless of where in the message other patterns would match.
var defaultPatterns = []pattern{
	// English
	newPattern("en_called", LangEnglish, `(?i)\b(?:it['’]?s|it is|that['’]?s|that is)\s+(?:actually\s+)?called\s+`+phrase, WeightExplicit),
	newPattern("en_named", LangEnglish, `(?i)\b(?:it['’]?s|it is|that['’]?s|that is)\s+(?:actually\s+)?named\s+`+phrase, WeightExplicit),
	newPattern("en_correct_name", LangEnglish, `(?i)\b(?:correct|real|actual|right|proper)\s+name\s+is\s+`+phrase, WeightExplicit),
	newPattern("en_actually", LangEnglish, `(?i)\bactually[,\s]+(?:it['’]?s|it is)\s+`+phrase, WeightImplicit),
	newPattern("en_no", LangEnglish, `(?i)\bno[,\s]+(?:it['’]?s|it is)\s+`+phrase, WeightImplicit),

	// Chinese (traditional and simplified)
	newPattern("zh_correct_name", LangChinese, `正[確确](?:的)?名字是\s*`+phrase, WeightExplicit),
	newPattern("zh_shop_called", LangChinese, `那家店叫(?:做)?\s*`+phrase, WeightExplicit),
	newPattern("zh_called", LangChinese, `叫做\s*`+phrase, WeightExplicit),
	newPattern("zh_actually", LangChinese, `(?:其[實实]|[實实][際际]上)是\s*`+phrase, WeightImplicit),
	newPattern("zh_should_be", LangChinese, `[應应][該该]是\s*`+phrase, WeightImplicit),
	newPattern("zh_quoted", LangChinese, `是\s*「([^」]+)」`, WeightImplicit),

	// Japanese
	newPattern("ja_correct_name", LangJapanese, `(?:正しい|本当の)名前は\s*`+phrase, WeightExplicit),
	newPattern("ja_correctly", LangJapanese, `正しくは\s*`+phrase, WeightExplicit),
	newPattern("ja_named", LangJapanese, `(?:^|[、,\s])([^、,\s。！？]+)という(?:名前|店|お店)`, WeightImplicit),
}

// Business-name fallback, tried only when no pattern above matched.
var (
	quotedName      = regexp.MustCompile(`「([^」]+)」|『([^』]+)』|"([^"]+)"|“([^”]+)”`)
	kanaShopName    = regexp.MustCompile(`([\p{Katakana}ー]{2,}(?:専門店|焙煎所|カフェ|店))`)
	capitalizedName = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
)

const businessNamePattern = "business_name"
