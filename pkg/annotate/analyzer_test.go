package annotate

import (
	"reflect"
	"sync"
	"testing"
)

var (
	sharedOnce     sync.Once
	sharedAnalyzer *Analyzer
	sharedErr      error
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	sharedOnce.Do(func() { sharedAnalyzer, sharedErr = NewAnalyzer() })
	if sharedErr != nil {
		t.Fatalf("Failed to create analyzer: %v", sharedErr)
	}
	return sharedAnalyzer
}

func TestAnalyzeBaseForms(t *testing.T) {
	a := newAnalyzer(t)
	tokens := a.Analyze("寿司を食べました")
	if len(tokens) == 0 {
		t.Fatal("no tokens")
	}
	var verb *Token
	for i := range tokens {
		if tokens[i].Surface == "食べ" {
			verb = &tokens[i]
		}
	}
	if verb == nil {
		t.Fatalf("no token for 食べ in %+v", tokens)
	}
	if verb.BaseForm != "食べる" {
		t.Errorf("BaseForm = %q, want 食べる", verb.BaseForm)
	}
	if verb.PrimaryPOS != "動詞" {
		t.Errorf("PrimaryPOS = %q, want 動詞", verb.PrimaryPOS)
	}
}

func TestAnalyzeDocumentSplitsSentences(t *testing.T) {
	a := newAnalyzer(t)
	sentences := a.AnalyzeDocument("猫が好きです。犬は？\n\n鳥！")
	var got []string
	for _, s := range sentences {
		got = append(got, s.Text)
	}
	// The blank line between sentences is dropped.
	want := []string{"猫が好きです。", "犬は？", "鳥！"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("一。二！三")
	want := []string{"一。", "二！", "三"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitSentences = %q, want %q", got, want)
	}
}

func TestReading(t *testing.T) {
	a := newAnalyzer(t)
	tests := []struct {
		text string
		want string
	}{
		{"東京", "とうきょう"},
		{"寿司", "すし"},
		{"", ""},
		{"zzqx", ""},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			if got := a.Reading(tc.text); got != tc.want {
				t.Errorf("Reading(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestIsContentWord(t *testing.T) {
	tests := []struct {
		name string
		tok  Token
		want bool
	}{
		{"verb", Token{Surface: "食べ", PrimaryPOS: "動詞"}, true},
		{"particle", Token{Surface: "を", PrimaryPOS: "助詞"}, false},
		{"auxiliary", Token{Surface: "まし", PrimaryPOS: "助動詞"}, false},
		{"symbol", Token{Surface: "。", PrimaryPOS: "記号"}, false},
		{"number", Token{Surface: "三", PrimaryPOS: "名詞", PartsOfSpeech: []string{"名詞", "数"}}, false},
		{"ascii", Token{Surface: "Medium", PrimaryPOS: "名詞"}, false},
		{"fullwidth digits", Token{Surface: "１２", PrimaryPOS: "名詞"}, false},
		{"noun", Token{Surface: "机", PrimaryPOS: "名詞", PartsOfSpeech: []string{"名詞", "一般"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsContentWord(tc.tok); got != tc.want {
				t.Errorf("IsContentWord(%+v) = %v, want %v", tc.tok, got, tc.want)
			}
		})
	}
}
