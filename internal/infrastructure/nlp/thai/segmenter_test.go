package thai

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

func TestTokenizeThaiQuestion(t *testing.T) {
	s := New()

	got := s.Tokenize("ราคาข้าวปีนี้เป็นอย่างไร")
	want := "ราคา ข้าว ปี นี้ เป็น อย่างไร"
	if got != want {
		t.Fatalf("Tokenize() = %q, want %q", got, want)
	}
}

func TestSegmentPrefersFewerTokens(t *testing.T) {
	s := New()

	got := s.Segment("ผลกระทบภัยแล้งต่อยางพารา")
	want := []string{"ผลกระทบ", "ภัยแล้ง", "ต่อ", "ยางพารา"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment() = %q, want %q", got, want)
	}
}

func TestSegmentAgricultureVocabulary(t *testing.T) {
	s := New()

	cases := []struct {
		input string
		want  []string
	}{
		{"โครงการประกันรายได้ชาวนา", []string{"โครงการ", "ประกันรายได้", "ชาวนา"}},
		{"ปุ๋ยเคมีราคาแพงขึ้น", []string{"ปุ๋ย", "เคมี", "ราคา", "แพง", "ขึ้น"}},
		{"เกษตรกรชาวสวนยางในภาคใต้ได้รับเงินชดเชย", []string{"เกษตรกร", "ชาวสวนยาง", "ใน", "ภาคใต้", "ได้รับ", "เงินชดเชย"}},
		{"การระบาดของเพลี้ยกระโดดสีน้ำตาลในนาข้าว", []string{"การระบาด", "ของ", "เพลี้ยกระโดดสีน้ำตาล", "ใน", "นาข้าว"}},
		{"สถานการณ์ราคาทุเรียนส่งออกไปจีน", []string{"สถานการณ์", "ราคา", "ทุเรียน", "ส่งออก", "ไป", "จีน"}},
	}
	for _, tc := range cases {
		if got := s.Segment(tc.input); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Segment(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestEmbeddedDictionaryCoversDomain(t *testing.T) {
	s := New()

	if s.Size() < 2000 {
		t.Fatalf("embedded dictionary has %d entries", s.Size())
	}
	for _, word := range []string{"ชาวนา", "เคมี", "มันสำปะหลัง", "กรมการข้าว", "นครราชสีมา"} {
		if got := s.Segment(word); len(got) != 1 || got[0] != word {
			t.Fatalf("Segment(%q) = %q, want a single word", word, got)
		}
	}
}

func TestSegmentMergesUnknownClusters(t *testing.T) {
	s := New()

	// "ฮะฮะ" is not in the dictionary and must stay one token.
	got := s.Segment("ราคาฮะฮะข้าว")
	want := []string{"ราคา", "ฮะฮะ", "ข้าว"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment() = %q, want %q", got, want)
	}
}

func TestSegmentMixedScripts(t *testing.T) {
	s := New()

	got := s.Tokenize("FAQ ของกระทรวงเกษตร, ปี 2567?")
	want := "FAQ ของ กระทรวงเกษตร ปี 2567"
	if got != want {
		t.Fatalf("Tokenize() = %q, want %q", got, want)
	}
}

func TestTokenizeAlreadySegmentedInputIsStable(t *testing.T) {
	s := New()

	for _, input := range []string{"rice price outlook", "ราคา ข้าว ปี นี้"} {
		if got := s.Tokenize(input); got != input {
			t.Fatalf("Tokenize(%q) = %q, want unchanged", input, got)
		}
	}
}

func TestTokenizeEmptyInput(t *testing.T) {
	s := New()

	if got := s.Tokenize("   "); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := s.Segment(""); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestNewWithExtraWords(t *testing.T) {
	base := New()
	s := New("ปีนี้")

	if s.Size() != base.Size()+1 {
		t.Fatalf("expected one extra entry, got %d vs %d", s.Size(), base.Size())
	}
	if got := s.Tokenize("ราคาข้าวปีนี้"); got != "ราคา ข้าว ปีนี้" {
		t.Fatalf("Tokenize() = %q", got)
	}
}

func TestNewWithDictionary(t *testing.T) {
	base := New()
	dict := "\ufeff# local additions\nปีนี้\n\n  ราคา  \n"

	s, err := NewWithDictionary(strings.NewReader(dict), "ฮะฮะ")
	if err != nil {
		t.Fatalf("NewWithDictionary() error = %v", err)
	}
	// ราคา is already embedded.
	if s.Size() != base.Size()+2 {
		t.Fatalf("Size() = %d, want %d", s.Size(), base.Size()+2)
	}
	if got := s.Tokenize("ราคาฮะฮะข้าวปีนี้"); got != "ราคา ฮะฮะ ข้าว ปีนี้" {
		t.Fatalf("Tokenize() = %q", got)
	}
}

func TestNewWithDictionaryReadError(t *testing.T) {
	readErr := errors.New("disk gone")

	_, err := NewWithDictionary(iotest.ErrReader(readErr))
	if !errors.Is(err, readErr) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestClusterBounds(t *testing.T) {
	// เ binds forward, ็ binds backward: เป็น -> [เป็][น]
	got := clusterBounds([]rune("เป็น"))
	want := []int{0, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("clusterBounds() = %v, want %v", got, want)
	}
}
