package router

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "lowercases", in: "ЛАВАНДА", want: "лаванда"},
		{name: "punctuation becomes space", in: "Привет!Как дела?", want: "привет как дела"},
		{name: "collapses whitespace", in: "  мята \t\n  лимон  ", want: "мята лимон"},
		{name: "quotes and brackets", in: `"роза" (масло): \ок;`, want: "роза масло ок"},
		{name: "only punctuation", in: "?!...", want: ""},
		{name: "keeps other symbols", in: "чайное-дерево #1", want: "чайное-дерево #1"},
		{name: "latin", in: "Apple Music, please", want: "apple music please"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"Расскажи про ЛАВАНДУ!!!",
		"  нужна   энергия. ",
		"/start@bot hello",
		"a,b;c:d(e)f\"g\\h",
		"Хочу   послушать\tмузыку?",
	}

	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
