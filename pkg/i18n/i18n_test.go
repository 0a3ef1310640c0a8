package i18n

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "es"},
		{"es", "es"},
		{"es-MX", "es"},
		{"en", "en"},
		{"en-GB,en;q=0.9", "en"},
		{"fr-FR", "es"},
		{"not a tag!!", "es"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Match(tt.in); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocalizer(t *testing.T) {
	if err := Load(Locales()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	es := NewLocalizer("es")
	if got := es.T("timeline.no_date"); got != "Sin fecha" {
		t.Errorf("es no_date = %q", got)
	}

	en := NewLocalizer("en-US")
	if got := en.T("month.3"); got != "March" {
		t.Errorf("en month.3 = %q", got)
	}

	if got := en.T("missing.key"); got != "missing.key" {
		t.Errorf("missing key = %q", got)
	}

	body := es.TWithParams("notify.body", map[string]string{"number": "521", "text": "Hola"})
	if body != "521: Hola" {
		t.Errorf("body = %q", body)
	}
}
