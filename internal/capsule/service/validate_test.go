package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterFormValidate(t *testing.T) {
	t.Parallel()

	valid := RegisterForm{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "Aa1!aaaa",
		ConfirmPassword: "Aa1!aaaa",
	}

	t.Run("valid form passes", func(t *testing.T) {
		f := valid
		require.Empty(t, f.Validate())
	})

	t.Run("username too short", func(t *testing.T) {
		f := valid
		f.Username = "ab"
		require.Equal(t, ValidationErrors{"Invalid username."}, f.Validate())
	})

	t.Run("username too long", func(t *testing.T) {
		f := valid
		f.Username = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 36 chars
		require.Equal(t, ValidationErrors{"Invalid username."}, f.Validate())
	})

	t.Run("bad email shapes", func(t *testing.T) {
		for _, email := range []string{"", "alice", "alice@", "@example.com", "alice@example", "alice@example.c"} {
			f := valid
			f.Email = email
			require.Equal(t, ValidationErrors{"Invalid Email."}, f.Validate(), "email %q", email)
		}
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		f := valid
		f.ConfirmPassword = "Aa1!aaab"
		require.Equal(t, ValidationErrors{"Invalid Password."}, f.Validate())
	})

	t.Run("errors accumulate across fields", func(t *testing.T) {
		f := RegisterForm{Username: "x", Email: "nope", Password: "short", ConfirmPassword: "short"}
		require.Equal(t, ValidationErrors{
			"Invalid username.",
			"Invalid Email.",
			"Invalid Password.",
		}, f.Validate())
	})

	t.Run("normalize lowercases email and trims fields", func(t *testing.T) {
		f := RegisterForm{
			Username:        "  alice  ",
			Email:           " ALICE@Example.com ",
			Password:        " Aa1!aaaa ",
			ConfirmPassword: " Aa1!aaaa ",
		}
		f.Normalize()
		require.Equal(t, "alice", f.Username)
		require.Equal(t, "alice@example.com", f.Email)
		require.Equal(t, "Aa1!aaaa", f.Password)
		require.Empty(t, f.Validate())
	})
}

func TestPasswordMeetsPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"meets all requirements", "Aa1!aaaa", true},
		{"all symbol classes accepted", "Zz9~`!@#$%^&*()_+{}|:'<>,.?/", true},
		{"too short", "Aa1!aaa", false},
		{"too long", "Aa1!aaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"no uppercase", "aa1!aaaa", false},
		{"no lowercase", "AA1!AAAA", false},
		{"no digit", "Aaa!aaaa", false},
		{"no symbol", "Aa1aaaaa", false},
		{"disallowed character", "Aa1!aaa ", false},
		{"disallowed symbol", "Aa1;aaaa", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, passwordMeetsPolicy(tt.password))
		})
	}
}

func TestValidateLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials pass", func(t *testing.T) {
		require.Empty(t, validateLogin("alice@example.com", "Aa1!aaaa"))
	})

	t.Run("empty password skips complexity check", func(t *testing.T) {
		require.Equal(t, ValidationErrors{"Invalid Password."}, validateLogin("alice@example.com", ""))
	})

	t.Run("bad email and weak password both reported", func(t *testing.T) {
		require.Equal(t, ValidationErrors{
			"Invalid Email.",
			"Invalid Password.",
		}, validateLogin("nope", "weak"))
	})
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "alice@example.com", NormalizeEmail(" ALICE@Example.com "))
	require.Equal(t, "bob@example.com", NormalizeEmail("bob@example.com"))
}
