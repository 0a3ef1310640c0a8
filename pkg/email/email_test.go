package email

import (
	"strings"
	"testing"
)

func TestRenderHTMLEscapes(t *testing.T) {
	out := RenderHTML(Message{
		Title:  "Nuevo mensaje",
		Body:   `5215550001: <script>alert("x")</script>`,
		Footer: "Abre la consola para responder.",
	})

	if strings.Contains(out, "<script>") {
		t.Error("customer text not escaped")
	}
	if !strings.Contains(out, "5215550001: &lt;script&gt;") {
		t.Error("escaped body missing")
	}
	if !strings.Contains(out, "Nuevo mensaje") {
		t.Error("title missing")
	}
}
