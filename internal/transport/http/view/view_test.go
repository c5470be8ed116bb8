package view_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ErlanBelekov/dual-auth/internal/transport/http/view"
)

func TestLoad_DefinesEveryPage(t *testing.T) {
	tmpl, err := view.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, name := range []string{"login.html", "signup.html", "dashboard.html", "users.html"} {
		if tmpl.Lookup(name) == nil {
			t.Errorf("template %q not defined", name)
		}
	}
}

func TestLogin_RendersFlashEscaped(t *testing.T) {
	tmpl, err := view.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "login.html", map[string]any{
		"Flash": map[string]string{"alert": "<b>nope</b>"},
		"Email": "a@b.co",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "&lt;b&gt;nope&lt;/b&gt;") {
		t.Errorf("flash not escaped: %s", out)
	}
	if !strings.Contains(out, `value="a@b.co"`) {
		t.Errorf("email not prefilled")
	}
}
