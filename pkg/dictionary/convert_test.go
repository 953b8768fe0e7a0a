package dictionary

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/japaniel/jdict/pkg/db"
)

func TestToHiragana(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"ア", "あ"},
		{"イ", "い"},
		{"カ", "か"},
		{"ガ", "が"},
		{"パ", "ぱ"},
		{"ン", "ん"},
		{"ー", "ー"},
		{"abc", "abc"},
		{"あいう", "あいう"},
	}
	for _, tt := range tests {
		if got := ToHiragana(tt.in); got != tt.out {
			t.Errorf("ToHiragana(%q) = %q; want %q", tt.in, got, tt.out)
		}
	}
}

func TestToRomaji(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"たべる", "taberu"},
		{"しょくじ", "shokuji"},
		{"きって", "kitte"},
		{"まっちゃ", "matcha"},
		{"ほんや", "hon'ya"},
		{"しんぶん", "shinbun"},
		{"テスト", "tesuto"},
		{"コーヒー", "koohii"},
		{"ちず", "chizu"},
		{"ふじさん", "fujisan"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := ToRomaji(tt.in); got != tt.out {
			t.Errorf("ToRomaji(%q) = %q; want %q", tt.in, got, tt.out)
		}
	}
}

func TestMakeFurigana(t *testing.T) {
	tests := []struct {
		word, reading, want string
	}{
		{"食べる", "たべる", "食[た]べる"},
		{"食べ物", "たべもの", "食[た]べ物[もの]"},
		{"日本語", "にほんご", "日本語[にほんご]"},
		{"お茶", "おちゃ", "お茶[ちゃ]"},
		{"テスト", "テスト", ""},
		{"", "たべる", ""},
		{"食べる", "のむ", "食べる[のむ]"},
	}
	for _, tt := range tests {
		if got := MakeFurigana(tt.word, tt.reading); got != tt.want {
			t.Errorf("MakeFurigana(%q, %q) = %q; want %q", tt.word, tt.reading, got, tt.want)
		}
	}
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		existing string
		add      []string
		want     string
	}{
		{"", nil, ""},
		{"v1, vt", []string{"JLPTN5"}, "JLPTN5,v1,vt"},
		{"n,,n", []string{" n ", "vs"}, "n,vs"},
	}
	for _, tt := range tests {
		if got := MergeTags(tt.existing, tt.add...); got != tt.want {
			t.Errorf("MergeTags(%q, %v) = %q; want %q", tt.existing, tt.add, got, tt.want)
		}
	}
}

func TestToRow(t *testing.T) {
	entries, err := LoadJMdictSimplified(writeSource(t, sampleSource))
	if err != nil {
		t.Fatalf("load dict: %v", err)
	}

	got, ok := ToRow(entries[0])
	if !ok {
		t.Fatal("ToRow skipped 食べる")
	}
	want := db.Entry{
		Source:   db.Ptr(int64(1358280)),
		Kanji:    "食べる",
		Reading:  db.Ptr("たべる"),
		Furigana: db.Ptr("食[た]べる"),
		Romaji:   db.Ptr("taberu"),
		Meaning:  "to eat; to live on (e.g. a salary), to live off",
		Tags:     db.Ptr("common,v1,vt"),
		Priority: db.Ptr(CommonPriority),
		Extra: []db.Field{
			{Key: ExtraJMdictID, Value: "1358280"},
			{Key: ExtraOtherForms, Value: "喰べる"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToRow (-want, +got):\n%s", diff)
	}
	if got.PrimarySense() != "to eat" {
		t.Errorf("PrimarySense() = %q", got.PrimarySense())
	}

	kana, ok := ToRow(entries[1])
	if !ok {
		t.Fatal("ToRow skipped テスト")
	}
	if kana.Kanji != "" || db.Deref(kana.Reading) != "テスト" || kana.Furigana != nil || db.Deref(kana.Romaji) != "tesuto" {
		t.Errorf("unexpected kana-only row: %+v", kana)
	}
	if kana.Headword() != "テスト" {
		t.Errorf("Headword() = %q", kana.Headword())
	}
}

func TestToRowReadingAppliesToKanji(t *testing.T) {
	e := JMdictEntry{
		Id: "42",
		Kanji: []JMdictElement{
			{Text: "上手", Common: true},
			{Text: "上衆"},
		},
		Kana: []JMdictElement{
			{Text: "じょうず", Common: true, AppliesToKanji: []string{"上手"}},
			{Text: "じょうしゅ", AppliesToKanji: []string{"上衆"}},
		},
		Sense: []JMdictSense{{Gloss: []JMdictGloss{{Text: "skillful; adept"}, {Text: "geschickt", Lang: "ger"}}}},
	}
	got, ok := ToRow(e)
	if !ok {
		t.Fatal("ToRow skipped entry")
	}
	if db.Deref(got.Reading) != "じょうず" {
		t.Errorf("Reading = %q", db.Deref(got.Reading))
	}
	if got.Meaning != "skillful, adept" {
		t.Errorf("Meaning = %q, want separators inside a sense replaced", got.Meaning)
	}
}

func TestToRowSkipsEntriesWithoutEnglish(t *testing.T) {
	e := JMdictEntry{
		Id:    "7",
		Kana:  []JMdictElement{{Text: "なにか"}},
		Sense: []JMdictSense{{Gloss: []JMdictGloss{{Text: "etwas", Lang: "ger"}}}},
	}
	if _, ok := ToRow(e); ok {
		t.Error("ToRow accepted an entry without English glosses")
	}
}
