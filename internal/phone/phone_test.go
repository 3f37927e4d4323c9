package phone

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "local", in: "0821234567", want: "+27821234567"},
		{name: "international", in: "+27821234567", want: "+27821234567"},
		{name: "bare country code", in: "27821234567", want: "+27821234567"},
		{name: "formatted local", in: "082 123-4567", want: "+27821234567"},
		{name: "formatted international", in: " +27 (82) 123 4567 ", want: "+27821234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("normalize %q: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeLocalAndInternationalAgree(t *testing.T) {
	for _, national := range []string{"821234567", "711111111", "600000000", "123456789"} {
		local, err := Normalize("0" + national)
		if err != nil {
			t.Fatalf("local %s: %v", national, err)
		}
		intl, err := Normalize("+27" + national)
		if err != nil {
			t.Fatalf("international %s: %v", national, err)
		}
		if local != intl || local != "+27"+national {
			t.Fatalf("expected both forms to be +27%s, got %q and %q", national, local, intl)
		}
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "082123456", "08212345678", "+2782123456", "+441234567890", "abc", "+27821234567x1"} {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("expected ErrInvalidFormat for %q, got %v", in, err)
		}
	}
}

func TestToLocal(t *testing.T) {
	got, err := ToLocal("+27821234567")
	if err != nil {
		t.Fatalf("to local: %v", err)
	}
	if got != "0821234567" {
		t.Fatalf("expected 0821234567, got %q", got)
	}
}

func TestCarrierType(t *testing.T) {
	if got := CarrierType("0821234567"); got != CarrierMobile {
		t.Fatalf("expected mobile, got %s", got)
	}
	if got := CarrierType("0111234567"); got != CarrierUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestMask(t *testing.T) {
	if got := Mask("+27821234567"); got != "+27******567" {
		t.Fatalf("unexpected mask %q", got)
	}
}
