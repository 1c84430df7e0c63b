package service

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRenderNameWithoutPlaceholdersIsIdentity(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"General", "Ann's room", "sala de juegos", "🎮 lobby", strings.Repeat("x", 100)} {
		got, pos := RenderName(name, NameContext{DisplayName: "Ann", BadWords: []string{"zzz"}})
		if got != name || pos != 0 {
			t.Errorf("RenderName(%q) = %q, %d", name, got, pos)
		}
	}
}

func TestRenderNamePlaceholders(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		template string
		nc       NameContext
		want     string
		wantPos  int
	}{
		{"user", "@user's room", NameContext{DisplayName: "Ann"}, "Ann's room", 0},
		{"default template", "@user's channel", NameContext{DisplayName: "Bob"}, "Bob's channel", 0},
		{"game", "@game with @user", NameContext{DisplayName: "Ann", Game: "Chess"}, "Chess with Ann", 0},
		{"no game", "@user plays @game", NameContext{DisplayName: "Ann"}, "Ann plays no game", 0},
		{"position folds spaces", "@user room @position", NameContext{DisplayName: "Ann Lee", Taken: []int{1, 2}}, "Ann-Lee-room-3", 3},
		{"game redacted", "@user: @game", NameContext{DisplayName: "Ann", Game: "badgame", BadWords: []string{"bad"}}, "Ann: ***game", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, pos := RenderName(tc.template, tc.nc)
			if got != tc.want || pos != tc.wantPos {
				t.Fatalf("got %q/%d, want %q/%d", got, pos, tc.want, tc.wantPos)
			}
		})
	}
}

func TestNextPositionFirstFit(t *testing.T) {
	t.Parallel()
	cases := []struct {
		taken []int
		want  int
	}{
		{nil, 1},
		{[]int{1, 2}, 3},
		{[]int{2}, 1},
		{[]int{3, 1}, 2},
		{[]int{1, 1, 3}, 2},
		{[]int{1, 2, 3, 5}, 4},
	}
	for _, tc := range cases {
		if got := NextPosition(tc.taken); got != tc.want {
			t.Errorf("NextPosition(%v) = %d, want %d", tc.taken, got, tc.want)
		}
	}

	// {A:1, B:2} -> 3; sin A -> 1
	assigned := map[string]int{"A": 1, "B": 2}
	if got := NextPosition(positions(assigned)); got != 3 {
		t.Fatalf("next = %d, want 3", got)
	}
	delete(assigned, "A")
	if got := NextPosition(positions(assigned)); got != 1 {
		t.Fatalf("next after removing A = %d, want 1", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", 150)
	got, _ := RenderName(long, NameContext{})
	if utf8.RuneCountInString(got) != MaxNameLength || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated = %q (%d runes)", got, utf8.RuneCountInString(got))
	}
	if got[:97] != long[:97] {
		t.Fatalf("prefix changed")
	}

	wide := strings.Repeat("ñ", 120)
	if got := Truncate(wide, MaxNameLength); utf8.RuneCountInString(got) != 100 {
		t.Fatalf("multibyte truncation = %d runes", utf8.RuneCountInString(got))
	}
	if got := Truncate("short", MaxNameLength); got != "short" {
		t.Fatalf("short name changed: %q", got)
	}
}

func TestRedact(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		words []string
		want  string
	}{
		{"a bad name", []string{"bad"}, "a *** name"},
		{"bad bad", []string{"bad"}, "*** ***"},
		{"a Bad name", []string{"bad"}, "a Bad name"},
		{"ñoño room", []string{"ñoño"}, "**** room"},
		{"clean", []string{""}, "clean"},
	}
	for _, tc := range cases {
		if got := Redact(tc.name, tc.words); got != tc.want {
			t.Errorf("Redact(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRedactRunsAfterTruncation(t *testing.T) {
	t.Parallel()
	// "bad" queda cortado por el truncado, así que no se censura
	name := strings.Repeat("a", 96) + "bad" + "xx"
	got, _ := RenderName(name, NameContext{BadWords: []string{"bad"}})
	want := strings.Repeat("a", 96) + "b..."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTextName(t *testing.T) {
	t.Parallel()
	if got := TextName("Ann's Room 2"); got != "ann's-room-2" {
		t.Fatalf("TextName = %q", got)
	}
}
