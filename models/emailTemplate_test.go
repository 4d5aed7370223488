package models

import "testing"

func TestRender_TokenSubstitution(t *testing.T) {
	tmpl := &EmailTemplate{
		Subject: "Analysis {analysis_name} done",
		Body:    "Period {period}: {discrepancy_count} unmatched.\nAgain: {period}",
	}
	rendered := tmpl.Render(map[string]string{
		"analysis_name":     "November audit",
		"period":            "Kasım 2025",
		"discrepancy_count": "3",
	})
	if rendered.Subject != "Analysis November audit done" {
		t.Errorf("Subject = %q", rendered.Subject)
	}
	if rendered.Body != "Period Kasım 2025: 3 unmatched.\nAgain: Kasım 2025" {
		t.Errorf("Body = %q", rendered.Body)
	}
}

func TestRender_UnknownTokensLeftVerbatim(t *testing.T) {
	tmpl := &EmailTemplate{
		Subject: "{known} and {unknown_token}",
		Body:    "{also_unknown}",
	}
	rendered := tmpl.Render(map[string]string{"known": "X"})
	if rendered.Subject != "X and {unknown_token}" {
		t.Errorf("Subject = %q", rendered.Subject)
	}
	if rendered.Body != "{also_unknown}" {
		t.Errorf("Body = %q", rendered.Body)
	}
}

func TestRender_EmptyTokenMap(t *testing.T) {
	tmpl := &EmailTemplate{Subject: "{a}", Body: "{b}"}
	rendered := tmpl.Render(nil)
	if rendered.Subject != "{a}" || rendered.Body != "{b}" {
		t.Errorf("rendered = %+v", rendered)
	}
}

func TestRender_CarriesDefaultRecipients(t *testing.T) {
	tmpl := &EmailTemplate{
		Subject:   "s",
		Body:      "b",
		DefaultTo: "it@example.com, audit@example.com",
		DefaultCc: "boss@example.com",
	}
	rendered := tmpl.Render(nil)
	if rendered.DefaultTo != tmpl.DefaultTo || rendered.DefaultCc != tmpl.DefaultCc {
		t.Errorf("rendered = %+v", rendered)
	}
}
