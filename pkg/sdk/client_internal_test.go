package sdk

import "testing"

func TestParseResponse(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		code    int
		wantErr bool
	}{
		{in: "OK Signup successful!", want: "Signup successful!"},
		{in: "PONG", want: "PONG"},
		{in: "OK", want: "OK"},
		{in: "ERR 401 Login failed: Invalid email or password.", code: 401, wantErr: true},
		{in: "ERR unknown command", code: 500, wantErr: true},
		{in: "WAT", wantErr: true},
	}

	for _, tc := range cases {
		got, err := parseResponse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
				continue
			}
			if tc.code != 0 {
				e, ok := err.(*Error)
				if !ok || e.Code != tc.code {
					t.Errorf("%q: expected code %d, got %v", tc.in, tc.code, err)
				}
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%q: expected %q, got %q (%v)", tc.in, tc.want, got, err)
		}
	}
}
