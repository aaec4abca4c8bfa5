package relayerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestHasCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{
			name: "direct_match",
			err:  InvalidState(CodeThreadClosed),
			code: CodeThreadClosed,
			want: true,
		},
		{
			name: "wrapped_match",
			err:  fmt.Errorf("relay user message: %w", InvalidState(CodeAlreadyClosed)),
			code: CodeAlreadyClosed,
			want: true,
		},
		{
			name: "different_code",
			err:  InvalidState(CodeEmptyReply),
			code: CodeThreadClosed,
			want: false,
		},
		{
			name: "plain_error",
			err:  errors.New("boom"),
			code: CodeThreadClosed,
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasCode(tc.err, tc.code); got != tc.want {
				t.Fatalf("HasCode(%v, %q)=%v, want %v", tc.err, tc.code, got, tc.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Transport(errors.New("rate limited"), true)); got != KindTransport {
		t.Fatalf("KindOf transport err = %v, want %v", got, KindTransport)
	}
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Fatalf("KindOf plain err = %v, want 0", got)
	}
}

func TestTransportCarriesTransientHint(t *testing.T) {
	err := Transport(errors.New("429"), true)
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("expected *Error")
	}
	if !re.Transient {
		t.Fatalf("expected transient hint to survive wrapping")
	}
}
