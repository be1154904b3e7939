package request

import (
	"smtptester/pkg"
)

type Credentials struct {
	User string `json:"user" validate:"min=1"`
	Pass string `json:"pass" validate:"min=1"`
}

// SmtpTestRequest is the normalized body of POST /api/test-smtp.
type SmtpTestRequest struct {
	Host   string      `json:"host" validate:"min=1"`
	Port   int         `json:"port" validate:"gte=1"`
	Secure bool        `json:"secure"`
	Auth   Credentials `json:"auth"`
	From   *string     `json:"from,omitempty" validate:"omitnil,email"`
	To     *string     `json:"to,omitempty" validate:"omitnil,email"`
}

// WantsSend reports whether both sender and recipient were supplied.
func (r SmtpTestRequest) WantsSend() bool {
	return r.From != nil && *r.From != "" && r.To != nil && *r.To != ""
}

// ImapTestRequest is the normalized body of POST /api/test-imap.
type ImapTestRequest struct {
	Host   string      `json:"host" validate:"min=1"`
	Port   int         `json:"port" validate:"gte=1"`
	Secure bool        `json:"secure"`
	Auth   Credentials `json:"auth"`
}

var connectionSchema = pkg.Schema{
	{Path: "host", Kind: pkg.KindString},
	{Path: "port", Kind: pkg.KindInteger},
	{Path: "secure", Kind: pkg.KindBoolean},
	{Path: "auth.user", Kind: pkg.KindString},
	{Path: "auth.pass", Kind: pkg.KindString},
}

var smtpTestSchema = append(append(pkg.Schema{}, connectionSchema...),
	pkg.Field{Path: "from", Kind: pkg.KindString, Optional: true},
	pkg.Field{Path: "to", Kind: pkg.KindString, Optional: true},
)

func ParseSmtpTest(raw []byte) (SmtpTestRequest, *pkg.ValidationError) {
	var req SmtpTestRequest
	if verr := pkg.Validate(raw, smtpTestSchema, &req); verr != nil {
		return SmtpTestRequest{}, verr
	}
	return req, nil
}

func ParseImapTest(raw []byte) (ImapTestRequest, *pkg.ValidationError) {
	var req ImapTestRequest
	if verr := pkg.Validate(raw, connectionSchema, &req); verr != nil {
		return ImapTestRequest{}, verr
	}
	return req, nil
}
