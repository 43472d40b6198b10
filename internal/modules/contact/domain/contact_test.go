package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func validRequest() Request {
	return Request{
		Name:    "Иван",
		Phone:   "+7 (912) 345-67-89",
		Message: "Нужна консультация",
		Agree:   true,
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+7 (912) 345-67-89", "79123456789"},
		{"8 912 345 67 89", "79123456789"},
		{"9123456789", "79123456789"},
		{"79123456789", "79123456789"},
		{"", "7"},
		{"abc", "7"},
		{"8", "7"},
		{"+1 555 0100", "715550100"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateOrder(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
		want   string
	}{
		{name: "valid", modify: func(*Request) {}},
		{name: "everything missing", modify: func(r *Request) { *r = Request{} }, want: MsgNoName},
		{name: "blank name", modify: func(r *Request) { r.Name = "   "; r.Message = "" }, want: MsgNoName},
		{name: "no message", modify: func(r *Request) { r.Message = " \n"; r.Phone = "" }, want: MsgNoMessage},
		{name: "short phone", modify: func(r *Request) { r.Phone = "12345"; r.Email = "bad" }, want: MsgBadPhone},
		{name: "long phone", modify: func(r *Request) { r.Phone = "+7 912 345 67 890" }, want: MsgBadPhone},
		{name: "bad email", modify: func(r *Request) { r.Email = "user@host"; r.Agree = false }, want: MsgBadEmail},
		{name: "good email", modify: func(r *Request) { r.Email = " user@example.com " }},
		{name: "no agreement", modify: func(r *Request) { r.Agree = false }, want: MsgNoAgreement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.modify(&req)

			err := req.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Message != tt.want {
				t.Fatalf("Validate() = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRequestDecoding(t *testing.T) {
	tests := []struct {
		body      string
		wantAgree Agree
		wantPhone Field
	}{
		{body: `{"agree":true,"phone":"8 912"}`, wantAgree: true, wantPhone: "8 912"},
		{body: `{"agree":"true","phone":89123456789}`, wantAgree: true, wantPhone: "89123456789"},
		{body: `{"agree":"yes","phone":null}`, wantAgree: false},
		{body: `{"agree":1}`, wantAgree: false},
		{body: `{}`, wantAgree: false},
	}
	for _, tt := range tests {
		var req Request
		if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
			t.Fatalf("Unmarshal(%s) = %v", tt.body, err)
		}
		if req.Agree != tt.wantAgree || req.Phone != tt.wantPhone {
			t.Errorf("%s: got agree=%v phone=%q", tt.body, req.Agree, req.Phone)
		}
	}
}

func TestIsSpam(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{body: `{}`, want: false},
		{body: `{"company":null}`, want: false},
		{body: `{"company":""}`, want: false},
		{body: `{"company":"   "}`, want: false},
		{body: `{"company":false}`, want: false},
		{body: `{"company":0}`, want: false},
		{body: `{"company":"ACME"}`, want: true},
		{body: `{"company":true}`, want: true},
		{body: `{"company":42}`, want: true},
		{body: `{"company":{"name":"x"}}`, want: true},
	}
	for _, tt := range tests {
		var req Request
		if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
			t.Fatalf("Unmarshal(%s) = %v", tt.body, err)
		}
		if got := req.IsSpam(); got != tt.want {
			t.Errorf("%s: IsSpam() = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	req := validRequest()
	req.Name = "<script>&"
	req.Topic = "Поставка"

	got := Format(req, Meta{Site: "HYPROTEC", IP: "10.0.0.1", UserAgent: "curl/8"})
	want := strings.Join([]string{
		"<b>🧾 Заявка с сайта HYPROTEC</b>",
		"— <b>Имя:</b> &lt;script&gt;&amp;",
		"— <b>Телефон:</b> +7 (912) 345-67-89",
		"— <b>Тема:</b> Поставка",
		"— <b>Сообщение:</b>\nНужна консультация",
		"<i>IP:</i> 10.0.0.1",
		"<i>UA:</i> curl/8",
	}, "\n")
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatTruncatesByRunes(t *testing.T) {
	req := validRequest()
	req.Name = Field(strings.Repeat("я", 200))
	req.Email = "a@b.co"

	got := Format(req, Meta{Site: "HYPROTEC"})
	nameLine := strings.Split(got, "\n")[1]
	name := strings.TrimPrefix(nameLine, "— <b>Имя:</b> ")
	if n := utf8.RuneCountInString(name); n != 120 {
		t.Errorf("name cut to %d runes, want 120", n)
	}
	if !strings.Contains(got, "— <b>Email:</b> a@b.co") {
		t.Errorf("email line missing:\n%s", got)
	}
	if strings.Contains(got, "IP:") || strings.Contains(got, "UA:") {
		t.Errorf("empty meta lines rendered:\n%s", got)
	}
}
