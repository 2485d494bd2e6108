package model

import "testing"

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		12345: "123.45",
		20000: "200.00",
		-1250: "-12.50",
	}
	for in, want := range cases {
		if got := FormatCents(in); got != want {
			t.Errorf("FormatCents(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestCentsFromAmount(t *testing.T) {
	if got := CentsFromAmount(100.5); got != 10050 {
		t.Fatalf("got %d", got)
	}
	if got := CentsFromAmount(19.999); got != 2000 {
		t.Fatalf("got %d", got)
	}
}
