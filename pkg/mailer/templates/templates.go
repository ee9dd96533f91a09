package templates

import (
	"bytes"
	"fmt"
	"text/template"
)

// LoginLink is the template name for the passwordless login email.
const LoginLink = "login_link"

var texts = map[string]*template.Template{
	LoginLink: template.Must(template.New(LoginLink).Parse(
		"Click the link to confirm your login: {{.Link}}\n\n" +
			"The link is valid for {{.ExpiresInMinutes}} minutes. " +
			"If you did not request access, you can ignore this message.\n",
	)),
}

var subjects = map[string]string{
	LoginLink: "Your login confirmation link",
}

// Render produces subject and text body for the named template.
func Render(name string, data map[string]any) (subject, text string, err error) {
	t, ok := texts[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subjects[name], buf.String(), nil
}
