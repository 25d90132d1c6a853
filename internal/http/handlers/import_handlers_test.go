package handlers

import (
	"strings"
	"testing"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr string
	}{
		{"12", 12, ""},
		{" 7 ", 7, ""},
		{"-3", -3, ""},
		{"12.0", 12, ""},
		{"12,0", 12, ""},
		{"1 200", 1200, ""},
		{"", 0, "missing quantity"},
		{"abc", 0, `invalid quantity "abc"`},
		{"2.5", 0, `invalid quantity "2.5": not a whole number`},
		{"NaN", 0, `invalid quantity "NaN"`},
		{"1e300", 0, `invalid quantity "1e300"`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseQuantity(tt.raw)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("expected error %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("expected %d, got %d (%v)", tt.want, got, err)
			}
		})
	}
}

func TestParseCSV_BadRowsDoNotSinkTheFile(t *testing.T) {
	data := "article,name,qty\r\n" +
		"X,Bolt,5\r\n" +
		"Y,\"bad\"name,2\r\n" +
		"\r\n" +
		"P,Pipe 5\" long,3\r\n" +
		"Z,Nut,abc\r\n" +
		"W,Washer,2.5\r\n" +
		"V,\"Screw, long\",4\r\n"

	entries, err := parseCSV([]byte(data))
	if err != nil {
		t.Fatalf("parseCSV failed: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d: %+v", len(entries), entries)
	}

	if e := entries[0]; e.ParseErr != nil || e.SKU != "X" || e.Quantity != 5 {
		t.Errorf("unexpected first entry %+v", e)
	}
	if e := entries[1]; e.ParseErr == nil || !strings.HasPrefix(e.ParseErr.Error(), "line 3: ") {
		t.Errorf("expected a quoting error on line 3, got %+v", e)
	}
	if e := entries[2]; e.ParseErr != nil || e.Name != `Pipe 5" long` || e.Quantity != 3 {
		t.Errorf("expected a stray quote to be read literally, got %+v", e)
	}
	if e := entries[3]; e.ParseErr == nil || e.ParseErr.Error() != `invalid quantity "abc"` {
		t.Errorf("expected an invalid quantity, got %+v", e)
	}
	if e := entries[4]; e.ParseErr == nil || !strings.Contains(e.ParseErr.Error(), "not a whole number") {
		t.Errorf("expected a fractional quantity to be rejected, got %+v", e)
	}
	if e := entries[5]; e.ParseErr != nil || e.Name != "Screw, long" || e.Quantity != 4 {
		t.Errorf("unexpected quoted entry %+v", e)
	}
}

func TestParseCSV_InvalidHeader(t *testing.T) {
	for _, data := range []string{"", "\n\n", "article,name\nX,Bolt\n", "\"article,name,qty\n"} {
		if _, err := parseCSV([]byte(data)); err == nil {
			t.Errorf("expected %q to be rejected", data)
		}
	}
}
