package detect

import (
	"strings"
	"testing"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_Patterns(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		fact       string
		confidence float64
		pattern    string
	}{
		{"called", "Actually, it's called Riverside Roasters", "Riverside Roasters", WeightExplicit, "en_called"},
		{"called curly apostrophe", "It’s called Blue Bottle Cafe.", "Blue Bottle Cafe", WeightExplicit, "en_called"},
		{"called quoted", `No no, it's called "Riverside Roasters"!`, "Riverside Roasters", WeightExplicit, "en_called"},
		{"named", "that's named Kissa Tanto, by the way", "Kissa Tanto, by the way", WeightExplicit, "en_named"},
		{"correct name", "The correct name is Glitch Coffee. Sorry!", "Glitch Coffee", WeightExplicit, "en_correct_name"},
		{"actually", "Actually, it's Lilo Coffee Roasters", "Lilo Coffee Roasters", WeightImplicit, "en_actually"},
		{"no", "no, it's Mel Coffee Roasters", "Mel Coffee Roasters", WeightImplicit, "en_no"},
		{"zh correct name", "正確的名字是老街咖啡。", "老街咖啡", WeightExplicit, "zh_correct_name"},
		{"zh simplified", "正确名字是老街咖啡", "老街咖啡", WeightExplicit, "zh_correct_name"},
		{"zh shop called", "那家店叫做「心斎橋焙煎所」", "心斎橋焙煎所", WeightExplicit, "zh_shop_called"},
		{"zh called", "它叫做老街咖啡", "老街咖啡", WeightExplicit, "zh_called"},
		{"zh actually", "不對，其實是心斎橋焙煎所啦", "心斎橋焙煎所", WeightImplicit, "zh_actually"},
		{"zh should be", "應該是老街咖啡吧", "老街咖啡", WeightImplicit, "zh_should_be"},
		{"zh quoted", "店名是「珈琲所コメダ」", "珈琲所コメダ", WeightImplicit, "zh_quoted"},
		{"ja correct name", "正しい名前は心斎橋焙煎所です。", "心斎橋焙煎所", WeightExplicit, "ja_correct_name"},
		{"ja correctly", "正しくはLiLo Coffee Roastersです", "LiLo Coffee Roasters", WeightExplicit, "ja_correctly"},
		{"ja named", "いや、心斎橋焙煎所という名前です", "心斎橋焙煎所", WeightImplicit, "ja_named"},
	}

	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := d.Detect(tt.message)
			require.NotNil(t, c, "expected a correction in %q", tt.message)
			assert.Equal(t, tt.fact, c.Fact)
			assert.Equal(t, tt.confidence, c.Confidence)
			assert.Equal(t, tt.pattern, c.Pattern)
		})
	}
}

func TestDetect_ActuallyItsCalled(t *testing.T) {
	c := New().Detect("Actually, it's called Riverside Roasters")
	require.NotNil(t, c)
	assert.Equal(t, "Riverside Roasters", c.Fact)
	assert.Equal(t, 0.8, c.Confidence)
	assert.Equal(t, domain.CategoryPlace, c.Category)
	assert.Equal(t, LangEnglish, c.Language)
}

func TestDetect_PriorityOrderNotMessageOrder(t *testing.T) {
	// The weak pattern appears first in the message but the explicit one has priority.
	c := New().Detect("No, it's Lilo. Well, the correct name is Lilo Coffee Roasters")
	require.NotNil(t, c)
	assert.Equal(t, "en_correct_name", c.Pattern)
	assert.Equal(t, "Lilo Coffee Roasters", c.Fact)
}

func TestDetect_NoMatch(t *testing.T) {
	messages := []string{
		"",
		"   ",
		"tell me about riverside roasters",
		`he said "ok"`,
		"What's your favourite coffee?",
		"no, it's fine",
		"actually it's okay",
		"it's called",
		"it's called ...",
		`it's called ""`,
		"今日はいい天気ですね",
		"我今天很開心",
		string([]byte{0xff, 0xfe, 0xfd}),
		"it's called " + strings.Repeat("x", MaxMessageRunes),
	}

	d := New()
	for _, m := range messages {
		assert.Nil(t, d.Detect(m), "expected no correction for %q", m)
	}
}

func TestDetect_BusinessNameFallback(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		fact     string
		lang     string
		category domain.Category
	}{
		{"corner brackets", "I went to 「心斎橋焙煎所」 yesterday", "心斎橋焙煎所", LangChinese, domain.CategoryPlace},
		{"double quotes", `We ended up at "Kissa Tanto" last night`, "Kissa Tanto", LangEnglish, domain.CategoryPlace},
		{"curly quotes", "My favourite is “Norwegian Wood” by Murakami, the novel", "Norwegian Wood", LangEnglish, domain.CategoryMedia},
		{"katakana shop", "昨日ブルーボトルカフェに行った", "ブルーボトルカフェ", LangJapanese, domain.CategoryPlace},
		{"katakana roastery", "あのリバーサイド焙煎所が好き", "リバーサイド焙煎所", LangJapanese, domain.CategoryPlace},
		{"capitalized words", "We should try Riverside Roasters Cafe", "Riverside Roasters Cafe", LangEnglish, domain.CategoryPlace},
	}

	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := d.Detect(tt.message)
			require.NotNil(t, c, "expected a name in %q", tt.message)
			assert.Equal(t, tt.fact, c.Fact)
			assert.Equal(t, WeightImplicit, c.Confidence)
			assert.Equal(t, businessNamePattern, c.Pattern)
			assert.Equal(t, tt.lang, c.Language)
			assert.Equal(t, tt.category, c.Category)
		})
	}
}

func TestDetect_PatternsBeatBusinessName(t *testing.T) {
	c := New().Detect(`"Blue Bottle" is wrong, the correct name is Riverside Roasters`)
	require.NotNil(t, c)
	assert.Equal(t, "en_correct_name", c.Pattern)
	assert.Equal(t, "Riverside Roasters", c.Fact)
}

func TestDetect_CategoryFromSurroundingWords(t *testing.T) {
	c := New().Detect("The book? No, it's Norwegian Wood")
	require.NotNil(t, c)
	assert.Equal(t, "Norwegian Wood", c.Fact)
	assert.Equal(t, domain.CategoryMedia, c.Category)
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, lang, want string
	}{
		{" Riverside Roasters. ", LangEnglish, "Riverside Roasters"},
		{"「心斎橋焙煎所」です。", LangJapanese, "心斎橋焙煎所"},
		{"老街咖啡啦！", LangChinese, "老街咖啡"},
		{`"'quoted'"`, LangEnglish, "quoted"},
		{"...", LangEnglish, ""},
		// particles are only stripped for their own language
		{"Cafe です", LangEnglish, "Cafe です"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clean(tt.in, tt.lang), "clean(%q, %q)", tt.in, tt.lang)
	}
}
