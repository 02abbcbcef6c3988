package normalize

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"plain negative", "-2.71", -2.71},
		{"european grouping", "1.234,56", 1234.56},
		{"us grouping", "1,234.56", 1234.56},
		{"lone comma decimal", "12,34", 12.34},
		{"garbage", "garbage", 0},
		{"empty", "", 0},
		{"euro symbol", "-1.234,56 €", -1234.56},
		{"dollar prefix", "$99.95", 99.95},
		{"integer", "42", 42},
		{"negative european", "-2,71", -2.71},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAmount(tt.raw); got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"standard", "15/02/2026", "2026-02-15"},
		{"pads day and month", "1/2/2026", "2026-02-01"},
		{"already iso", "2026-02-15", ""},
		{"empty", "", ""},
		{"two parts", "15/02", ""},
		{"four parts", "15/02/2026/1", ""},
		{"two digit year", "15/02/26", ""},
		{"non numeric day", "xx/02/2026", ""},
		{"whitespace tolerated", " 15/02/2026 ", "2026-02-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.raw); got != tt.want {
				t.Errorf("FormatDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercases", "MERCADONA", "mercadona"},
		{"strips terminal ids", "MERCADONA 4521", "mercadona"},
		{"keeps short digits", "BAR 24H", "bar 24h"},
		{"collapses whitespace", "  PAGO   TARJETA  ", "pago tarjeta"},
		{"empty", "", ""},
		{"only digits", "123456", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDescription(tt.raw); got != tt.want {
				t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
