package client

import (
	"fmt"
	"os"
	"smtptester/internal/api/handler/request"
	"smtptester/pkg"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultPort = 587

// Form is the editable state behind one test submission.
type Form struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secure bool   `yaml:"secure"`
	User   string `yaml:"user"`
	Pass   string `yaml:"pass"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
}

func NewForm() Form {
	return Form{Port: DefaultPort}
}

// Set updates one field from its text input. port is coerced to an integer
// and secure to a boolean here, so the payload never carries them as text.
func (f *Form) Set(name, value string) error {
	switch name {
	case "host":
		f.Host = value
	case "port":
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("port must be a number, got %q", value)
		}
		f.Port = port
	case "secure":
		secure, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("secure must be true or false, got %q", value)
		}
		f.Secure = secure
	case "user":
		f.User = value
	case "pass":
		f.Pass = value
	case "from":
		f.From = value
	case "to":
		f.To = value
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

// Payload is the body submitted to the API. Blank from/to are left out.
func (f Form) Payload() request.SmtpTestRequest {
	payload := request.SmtpTestRequest{
		Host:   f.Host,
		Port:   f.Port,
		Secure: f.Secure,
		Auth:   request.Credentials{User: f.User, Pass: f.Pass},
	}
	if from := strings.TrimSpace(f.From); from != "" {
		payload.From = pkg.ToPtr(from)
	}
	if to := strings.TrimSpace(f.To); to != "" {
		payload.To = pkg.ToPtr(to)
	}
	return payload
}

// LoadProfile reads a YAML preset. Fields absent from the file keep the
// defaults of NewForm.
func LoadProfile(path string) (Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Form{}, fmt.Errorf("failed to read profile: %w", err)
	}
	form := NewForm()
	if err := yaml.Unmarshal(data, &form); err != nil {
		return Form{}, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return form, nil
}
