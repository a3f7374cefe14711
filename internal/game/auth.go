package game

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	loginBanner = "╔══════════════════════════════════════╗\r\n" +
		"║             COMMANDBOOK              ║\r\n" +
		"║     Teleports, homes and warps       ║\r\n" +
		"╚══════════════════════════════════════╝"
	loginTagline = "Type 'help' once you are in to see what you may do."

	minNameLength     = 3
	maxNameLength     = 16
	minPasswordLength = 6
)

// validName keeps account names usable in target expressions, which give
// a leading @, * or # and the characters , : ~ a meaning of their own.
var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func validateUsername(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name cannot be empty")
	case len(name) < minNameLength:
		return fmt.Errorf("name must be at least %d characters", minNameLength)
	case len(name) > maxNameLength:
		return fmt.Errorf("name must be %d characters or fewer", maxNameLength)
	case !validName.MatchString(name):
		return fmt.Errorf("name may only use letters, digits and underscores")
	}
	return nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be blank")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func login(session *TelnetSession, accounts *AccountManager) (string, bool, error) {
	_ = session.WriteString(Ansi("\r\n" + Style(loginBanner, AnsiCyan, AnsiBold) + "\r\n"))
	_ = session.WriteString(Ansi(Style("\r\n"+loginTagline+"\r\n", AnsiGreen)))
	_ = session.WriteString(Ansi(Style("\r\nLogin required.\r\n", AnsiMagenta, AnsiBold)))
	for attempts := 0; attempts < 5; attempts++ {
		_ = session.WriteString(Ansi("\r\nUsername: "))
		username, err := session.ReadLine()
		if err != nil {
			return "", false, err
		}
		username = Trim(username)
		if err := validateUsername(username); err != nil {
			_ = session.WriteString(Ansi(Style("\r\n"+err.Error(), AnsiYellow)))
			continue
		}
		if accounts.Exists(username) {
			for tries := 0; tries < 3; tries++ {
				_ = session.WriteString(Ansi("\r\nPassword: "))
				password, err := session.ReadLine()
				if err != nil {
					return "", false, err
				}
				password = Trim(password)
				if accounts.Authenticate(username, password) {
					_ = session.WriteString(Ansi(Style("\r\nWelcome back, "+username+"!", AnsiGreen)))
					return username, accounts.IsAdmin(username), nil
				}
				_ = session.WriteString(Ansi(Style("\r\nIncorrect password.", AnsiYellow)))
			}
			_ = session.WriteString(Ansi("\r\nToo many failed attempts.\r\n"))
			return "", false, fmt.Errorf("authentication failed")
		}

		for {
			_ = session.WriteString(Ansi("\r\nSet a password: "))
			password, err := session.ReadLine()
			if err != nil {
				return "", false, err
			}
			password = Trim(password)
			if err := validatePassword(password); err != nil {
				_ = session.WriteString(Ansi(Style("\r\n"+err.Error(), AnsiYellow)))
				continue
			}
			if err := accounts.Register(username, password); err != nil {
				_ = session.WriteString(Ansi(Style("\r\n"+err.Error(), AnsiYellow)))
				break
			}
			_ = session.WriteString(Ansi(Style("\r\nAccount created. Welcome, "+username+"!", AnsiGreen)))
			return username, accounts.IsAdmin(username), nil
		}
	}
	_ = session.WriteString(Ansi("\r\nLogin cancelled.\r\n"))
	return "", false, fmt.Errorf("login cancelled")
}
