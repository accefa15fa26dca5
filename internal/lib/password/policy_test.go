package password

import "testing"

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "Abcd1234!", wantErr: false},
		{name: "too short", password: "Ab1!", wantErr: true},
		{name: "too long", password: repeat("Ab1!", 40), wantErr: true},
		{name: "missing lowercase", password: "ABCD1234!", wantErr: true},
		{name: "missing uppercase", password: "abcd1234!", wantErr: true},
		{name: "missing digit", password: "Abcdefgh!", wantErr: true},
		{name: "missing symbol", password: "Abcd1234", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolicy(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePolicy(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
