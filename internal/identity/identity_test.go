package identity

import "testing"

func TestSafeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "alice@example.com", "alice--example-com"},
		{"uppercase folded", "Alice@Example.COM", "alice--example-com"},
		{"dotted local part", "a.b@example.com", "a-b--example-com"},
		{"plus tag", "alice+chat@example.com", "alice+chat--example-com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeEmail(tt.input); got != tt.want {
				t.Errorf("SafeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSafeEmailDeterministic(t *testing.T) {
	if SafeEmail("bob@example.com") != SafeEmail("bob@example.com") {
		t.Error("SafeEmail is not deterministic")
	}
}

// Distinct accepted addresses must never normalize to the same key;
// "a.b@c" vs "a@b.c" is the classic collision of naive separator schemes.
func TestSafeEmailInjectiveOnAcceptedCharset(t *testing.T) {
	pairs := [][2]string{
		{"a.b@cd.com", "a@b.cd.com"},
		{"ab@cd.com", "a.b@cd.com"},
		{"a_b@cd.com", "a.b@cd.com"},
	}
	// "a..b@cd.com" and "a@b..cd.com" would both normalize to
	// "a--b--cd-com"; the validator must reject consecutive dots so the
	// collision cannot enter the system.
	for _, addr := range []string{"a..b@cd.com", "a@b..cd.com", ".a@cd.com", "a.@cd.com", "a@.cd.com", "a@cd.com."} {
		if err := ValidateEmail(addr); err == nil {
			t.Errorf("ValidateEmail(%q) accepted an address that collides under SafeEmail", addr)
		}
	}
	for _, p := range pairs {
		if err := ValidateEmail(p[0]); err != nil {
			t.Fatalf("ValidateEmail(%q) = %v", p[0], err)
		}
		if err := ValidateEmail(p[1]); err != nil {
			t.Fatalf("ValidateEmail(%q) = %v", p[1], err)
		}
		if SafeEmail(p[0]) == SafeEmail(p[1]) {
			t.Errorf("SafeEmail collision: %q and %q both map to %q", p[0], p[1], SafeEmail(p[0]))
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "alice@example.com", false},
		{"valid mixed case", "Alice@Example.com", false},
		{"hyphen reserved", "a-b@example.com", true},
		{"missing at", "aliceexample.com", true},
		{"empty", "", true},
		{"space", "alice bob@example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	p := Static{Email: "alice@example.com"}
	email, err := p.CurrentEmail()
	if err != nil {
		t.Fatalf("CurrentEmail() error = %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("email = %q", email)
	}

	empty := Static{}
	if _, err := empty.CurrentEmail(); err != ErrUnavailable {
		t.Errorf("empty provider error = %v, want ErrUnavailable", err)
	}
}
