package dictionary

import (
	"strings"
	"unicode"
)

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// IsKana reports whether r is hiragana, katakana or the prolonged sound mark.
func IsKana(r rune) bool {
	return unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || r == 'ー'
}

var digraphs = map[string]string{
	"きゃ": "kya", "きゅ": "kyu", "きょ": "kyo",
	"しゃ": "sha", "しゅ": "shu", "しょ": "sho", "しぇ": "she",
	"ちゃ": "cha", "ちゅ": "chu", "ちょ": "cho", "ちぇ": "che",
	"にゃ": "nya", "にゅ": "nyu", "にょ": "nyo",
	"ひゃ": "hya", "ひゅ": "hyu", "ひょ": "hyo",
	"みゃ": "mya", "みゅ": "myu", "みょ": "myo",
	"りゃ": "rya", "りゅ": "ryu", "りょ": "ryo",
	"ぎゃ": "gya", "ぎゅ": "gyu", "ぎょ": "gyo",
	"じゃ": "ja", "じゅ": "ju", "じょ": "jo", "じぇ": "je",
	"びゃ": "bya", "びゅ": "byu", "びょ": "byo",
	"ぴゃ": "pya", "ぴゅ": "pyu", "ぴょ": "pyo",
	"ふぁ": "fa", "ふぃ": "fi", "ふぇ": "fe", "ふぉ": "fo",
	"てぃ": "ti", "でぃ": "di", "とぅ": "tu", "どぅ": "du",
	"うぃ": "wi", "うぇ": "we", "うぉ": "wo",
	"ゔぁ": "va", "ゔぃ": "vi", "ゔぇ": "ve", "ゔぉ": "vo",
}

var monographs = map[rune]string{
	'あ': "a", 'い': "i", 'う': "u", 'え': "e", 'お': "o",
	'か': "ka", 'き': "ki", 'く': "ku", 'け': "ke", 'こ': "ko",
	'さ': "sa", 'し': "shi", 'す': "su", 'せ': "se", 'そ': "so",
	'た': "ta", 'ち': "chi", 'つ': "tsu", 'て': "te", 'と': "to",
	'な': "na", 'に': "ni", 'ぬ': "nu", 'ね': "ne", 'の': "no",
	'は': "ha", 'ひ': "hi", 'ふ': "fu", 'へ': "he", 'ほ': "ho",
	'ま': "ma", 'み': "mi", 'む': "mu", 'め': "me", 'も': "mo",
	'や': "ya", 'ゆ': "yu", 'よ': "yo",
	'ら': "ra", 'り': "ri", 'る': "ru", 'れ': "re", 'ろ': "ro",
	'わ': "wa", 'ゐ': "i", 'ゑ': "e", 'を': "o", 'ん': "n",
	'が': "ga", 'ぎ': "gi", 'ぐ': "gu", 'げ': "ge", 'ご': "go",
	'ざ': "za", 'じ': "ji", 'ず': "zu", 'ぜ': "ze", 'ぞ': "zo",
	'だ': "da", 'ぢ': "ji", 'づ': "zu", 'で': "de", 'ど': "do",
	'ば': "ba", 'び': "bi", 'ぶ': "bu", 'べ': "be", 'ぼ': "bo",
	'ぱ': "pa", 'ぴ': "pi", 'ぷ': "pu", 'ぺ': "pe", 'ぽ': "po",
	'ゔ': "vu",
	'ぁ': "a", 'ぃ': "i", 'ぅ': "u", 'ぇ': "e", 'ぉ': "o",
	'ゃ': "ya", 'ゅ': "yu", 'ょ': "yo", 'ゎ': "wa",
}

// ToRomaji transliterates kana to Hepburn romaji. Characters that are not
// kana are copied through.
func ToRomaji(s string) string {
	runes := []rune(ToHiragana(s))
	var b strings.Builder
	geminate := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var syl string
		if i+1 < len(runes) {
			if d, ok := digraphs[string(runes[i:i+2])]; ok {
				syl = d
				i++
			}
		}
		if syl == "" {
			switch r {
			case 'っ':
				geminate = true
				continue
			case 'ー':
				if v := lastVowel(b.String()); v != 0 {
					b.WriteByte(v)
				}
				continue
			case 'ん':
				b.WriteByte('n')
				if i+1 < len(runes) && startsWithVowelOrY(runes[i+1]) {
					b.WriteByte('\'')
				}
				continue
			}
			m, ok := monographs[r]
			if !ok {
				if geminate {
					b.WriteRune('っ')
					geminate = false
				}
				b.WriteRune(r)
				continue
			}
			syl = m
		}
		if geminate {
			if strings.HasPrefix(syl, "ch") {
				b.WriteByte('t')
			} else {
				b.WriteByte(syl[0])
			}
			geminate = false
		}
		b.WriteString(syl)
	}
	return b.String()
}

func lastVowel(s string) byte {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case 'a', 'i', 'u', 'e', 'o':
			return s[i]
		}
	}
	return 0
}

func startsWithVowelOrY(r rune) bool {
	m, ok := monographs[r]
	if !ok || m == "" {
		return false
	}
	switch m[0] {
	case 'a', 'i', 'u', 'e', 'o', 'y':
		return true
	}
	return false
}
