package bot

import (
	"fmt"
	"strings"
)

// Executor runs console commands on the server.
type Executor interface {
	ExecuteRCon(command string) error
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote makes s a single console argument.
func Quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}

func Kick(e Executor, clientID uint32, reason string) error {
	return e.ExecuteRCon(fmt.Sprintf("kick %d %s", clientID, Quote(reason)))
}

// KickAddress kicks every client connected from address.
func KickAddress(e Executor, address, reason string) error {
	return e.ExecuteRCon(fmt.Sprintf("kick %s %s", address, Quote(reason)))
}

func Ban(e Executor, clientID uint32, reason string) error {
	return e.ExecuteRCon(fmt.Sprintf("ban %d %s", clientID, Quote(reason)))
}

func BanAddress(e Executor, address, reason string) error {
	return e.ExecuteRCon(fmt.Sprintf("ban %s %s", address, Quote(reason)))
}

// Unban lifts a ban by address or by its one-based index in the ban list.
func Unban(e Executor, address string) error {
	return e.ExecuteRCon("unban " + address)
}

func Pause(e Executor) error { return e.ExecuteRCon("pause") }

// Shutdown stops the game server.
func Shutdown(e Executor) error { return e.ExecuteRCon("quit") }

func Unpause(e Executor) error { return e.ExecuteRCon("unpause") }

// SetSetting changes a game setting; an empty value prints the current one.
func SetSetting(e Executor, name, value string) error {
	if value == "" {
		return e.ExecuteRCon("setting " + name)
	}
	return e.ExecuteRCon(fmt.Sprintf("setting %s %s", name, Quote(value)))
}

// ResetCompany removes a company. companyID is the zero-based protocol id;
// the console counts from one.
func ResetCompany(e Executor, companyID uint8) error {
	return e.ExecuteRCon(fmt.Sprintf("resetcompany %d", int(companyID)+1))
}

func RenameClient(e Executor, clientID uint32, name string) error {
	return e.ExecuteRCon(fmt.Sprintf("client_name %d %s", clientID, Quote(name)))
}
