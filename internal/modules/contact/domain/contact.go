package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Response messages returned to the site form.
const (
	MsgSent        = "Заявка отправлена. Спасибо!"
	MsgHoneypot    = "Спасибо! Мы на связи."
	MsgNoName      = "Укажите имя."
	MsgNoMessage   = "Опишите ваш вопрос."
	MsgBadPhone    = "Укажите корректный телефон (+7 и 11 цифр)."
	MsgBadEmail    = "Введите корректный email."
	MsgNoAgreement = "Нужно согласие на обработку персональных данных."
	MsgUnavailable = "Сервис временно недоступен. Попробуйте позже."
	MsgSendFailed  = "Не удалось отправить. Попробуйте позже."
	MsgServerError = "Ошибка сервера. Попробуйте позже."
	MsgNotAllowed  = "Method Not Allowed"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Field is a form value. Numbers and booleans are kept as their JSON
// literal, null becomes empty.
type Field string

func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Field(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		*f = ""
	default:
		*f = Field(data)
	}
	return nil
}

func (f Field) String() string { return string(f) }

// Blank reports whether the value is empty after trimming.
func (f Field) Blank() bool { return strings.TrimSpace(string(f)) == "" }

// Honeypot is set when the hidden field carries a value. false, 0, null and
// blank strings count as empty.
type Honeypot bool

func (h *Honeypot) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		*h = strings.TrimSpace(v) != ""
	case float64:
		*h = v != 0
	case bool:
		*h = Honeypot(v)
	case []any:
		*h = len(v) > 0
	case map[string]any:
		*h = true
	default:
		*h = false
	}
	return nil
}

// Agree accepts the boolean true or the string "true"; anything else is false.
type Agree bool

func (a *Agree) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Agree(bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte(`"true"`)))
	return nil
}

// Request is the contact form payload
type Request struct {
	Name    Field `json:"name"`
	Phone   Field `json:"phone"`
	Email   Field `json:"email"`
	Topic   Field `json:"topic"`
	Message Field `json:"message"`
	Agree   Agree `json:"agree"`
	// Company is a honeypot: hidden on the form, humans leave it empty.
	Company Honeypot `json:"company"`
}

// IsSpam reports whether the honeypot was filled in.
func (r Request) IsSpam() bool {
	return bool(r.Company)
}

// ValidationError carries the user-facing message of the first failed check.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks the request in a fixed order and returns the first failure.
func (r Request) Validate() error {
	if r.Name.Blank() {
		return &ValidationError{Message: MsgNoName}
	}
	if r.Message.Blank() {
		return &ValidationError{Message: MsgNoMessage}
	}
	if len(NormalizePhone(string(r.Phone))) != 11 {
		return &ValidationError{Message: MsgBadPhone}
	}
	if !r.Email.Blank() && !emailPattern.MatchString(strings.TrimSpace(string(r.Email))) {
		return &ValidationError{Message: MsgBadEmail}
	}
	if !r.Agree {
		return &ValidationError{Message: MsgNoAgreement}
	}
	return nil
}

// NormalizePhone keeps ASCII digits, turns a leading 8 into 7 and prepends
// 7 when missing. A valid Russian number comes out with 11 digits.
func NormalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if strings.HasPrefix(digits, "8") {
		digits = "7" + digits[1:]
	}
	if !strings.HasPrefix(digits, "7") {
		digits = "7" + digits
	}
	return digits
}

// Meta describes where a request came from
type Meta struct {
	Site      string
	IP        string
	UserAgent string
}

// Format renders the Telegram message in HTML parse mode.
func Format(r Request, meta Meta) string {
	lines := []string{
		"<b>🧾 Заявка с сайта " + escape(meta.Site, 60) + "</b>",
		"— <b>Имя:</b> " + escape(string(r.Name), 120),
		"— <b>Телефон:</b> " + escape(string(r.Phone), 60),
	}
	if !r.Email.Blank() {
		lines = append(lines, "— <b>Email:</b> "+escape(string(r.Email), 120))
	}
	if r.Topic != "" {
		lines = append(lines, "— <b>Тема:</b> "+escape(string(r.Topic), 120))
	}
	lines = append(lines, "— <b>Сообщение:</b>\n"+escape(string(r.Message), 2000))
	if meta.IP != "" {
		lines = append(lines, "<i>IP:</i> "+escape(meta.IP, 60))
	}
	if meta.UserAgent != "" {
		lines = append(lines, "<i>UA:</i> "+escape(meta.UserAgent, 200))
	}
	return strings.Join(lines, "\n")
}

// escape cuts s to max runes, then escapes the characters HTML parse mode reserves.
func escape(s string, max int) string {
	if utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return htmlEscaper.Replace(s)
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
