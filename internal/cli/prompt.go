package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/errs"
	"golang.org/x/term"
)

// prompter asks for login fields that were not given as flags.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// secret reads a line without echoing it.
	secret func() (string, error)
}

func newStdinPrompter(out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(os.Stdin), out: out}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		p.secret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) hidden(label string) (string, error) {
	if p.secret == nil {
		return p.line(label)
	}
	fmt.Fprint(p.out, label)
	s, err := p.secret()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// loginInput holds the raw login fields before parsing.
type loginInput struct {
	Name string
	DOB  string
	PIN  string
}

// credentials fills in missing fields by prompting and parses the result.
func (p *prompter) credentials(in loginInput, now time.Time) (domain.Credentials, error) {
	var err error
	if in.Name == "" {
		if in.Name, err = p.line("Name: "); err != nil {
			return domain.Credentials{}, err
		}
	}
	if in.DOB == "" {
		if in.DOB, err = p.line("Date of birth (YYYY-MM-DD): "); err != nil {
			return domain.Credentials{}, err
		}
	}
	if in.PIN == "" {
		if in.PIN, err = p.hidden("PIN: "); err != nil {
			return domain.Credentials{}, err
		}
	}

	creds := domain.Credentials{Name: strings.TrimSpace(in.Name), PIN: in.PIN}
	if in.DOB != "" {
		dob, err := parseDOB(in.DOB, now)
		if err != nil {
			return domain.Credentials{}, err
		}
		creds.DateOfBirth = dob
	}
	return creds, nil
}

// parseDOB parses a YYYY-MM-DD date of birth. Dates after now are rejected.
func parseDOB(s string, now time.Time) (time.Time, error) {
	dob, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errs.Validation("date of birth must be YYYY-MM-DD, got %q", s)
	}
	if dob.After(now) {
		return time.Time{}, errs.Validation("date of birth %s is in the future", dob.Format(domain.DateLayout))
	}
	return dob, nil
}
