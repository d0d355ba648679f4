package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var langCodePattern = regexp.MustCompile(`^[a-zA-Z]{2}(-[a-zA-Z]{2})?$`)

// DefaultRegistry returns the standard command set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(Command{Name: "admin", Usage: "!admin <message>", Summary: "sends the message to the server's admin", Run: cmdAdmin})
	r.MustRegister(Command{Name: "reset", Usage: "!reset", Summary: "resets your company; you will be kicked off the server, so please re-join", Run: cmdReset})
	r.MustRegister(Command{Name: "name", Usage: "!name <new_name>", Summary: "changes your name; surround multiple words with double quotes", Run: cmdName})
	r.MustRegister(Command{Name: "lang", Usage: "!lang <language_code>", Summary: "sets your language, enter !lang for more info", Run: cmdLang})
	r.MustRegister(Command{Name: "top", Usage: "!top", Summary: "shows a short Hall of Fame list", Run: cmdTop})
	r.MustRegister(Command{Name: "who", Usage: "!who", Summary: "shows a list of players", Run: cmdWho})
	r.MustRegister(Command{Name: "help", Usage: "!help", Summary: "shows this list", Run: cmdHelp})
	return r
}

func cmdAdmin(b *Bot, req Request) error {
	text := fmt.Sprintf(":boom: %s %s", b.Describe(req.Sender), req.Message.Message)
	if err := b.Notify(EventAdminRequest, text); err != nil {
		b.Reply(req.Sender, "No connection to the administrator at the moment, please try again later.")
		return err
	}
	b.Reply(req.Sender, "Your message has been sent to the admin. Thank you!")
	return nil
}

func cmdReset(b *Bot, req Request) error {
	if !b.reset.Start(req.Sender, b.now()) {
		b.Reply(req.Sender, "Another reset request still being processed. Please retry in a few seconds.")
		return nil
	}
	_ = b.Notify(EventClient, fmt.Sprintf(":recycle: user %s requested a reset", b.Describe(req.Sender)))
	return b.game.RequestAllClientsInfo()
}

// parseNameArg accepts a bare word run or a double-quoted string with
// backslash escapes.
func parseNameArg(args string) string {
	if !strings.HasPrefix(args, `"`) {
		return strings.TrimSpace(args)
	}
	var sb strings.Builder
	escaped := false
	for _, r := range args[1:] {
		switch {
		case escaped:
			sb.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			return sb.String()
		default:
			sb.WriteRune(r)
		}
	}
	return ""
}

func cmdName(b *Bot, req Request) error {
	name := parseNameArg(req.Args)
	if name == "" {
		b.Reply(req.Sender, `Usage: !name <new_name> or !name "new name"`)
		return nil
	}
	_ = b.Notify(EventClient, fmt.Sprintf(":name_badge: user %s requested a rename to %s", b.Describe(req.Sender), name))
	return RenameClient(b.game, req.Sender, name)
}

// ParseLanguage validates a two-letter code with an optional region.
func ParseLanguage(code string) (language.Tag, error) {
	if !langCodePattern.MatchString(code) {
		return language.Und, fmt.Errorf("bot: malformed language code %q", code)
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, err
	}
	if _, conf := tag.Base(); conf == language.No {
		return language.Und, fmt.Errorf("bot: unknown language %q", code)
	}
	return tag, nil
}

func cmdLang(b *Bot, req Request) error {
	switch arg := strings.TrimSpace(req.Args); {
	case arg == "":
		b.Reply(req.Sender, "Set the language you would like chat in, as an ISO 639-1 code.")
		b.Reply(req.Sender, "For example: !lang en = English, !lang de = German, !lang zh-TW = Chinese Traditional")
		b.Reply(req.Sender, "To turn it off, write !lang off")
	case strings.EqualFold(arg, "off"):
		b.setLanguage(req.Sender, language.Und, false)
		b.Reply(req.Sender, "Language preference removed.")
	default:
		tag, err := ParseLanguage(arg)
		if err != nil {
			b.Reply(req.Sender, "Unknown language code. The correct syntax is !lang <language_code>")
			return nil
		}
		b.setLanguage(req.Sender, tag, true)
		b.Reply(req.Sender, "Language preference set to: "+tag.String())
	}
	return nil
}

var numberPrinter = message.NewPrinter(language.English)

func cmdTop(b *Bot, req Request) error {
	if b.fame == nil {
		b.Answer(req, "Hall of Fame is currently not available.")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.NotifyTimeout)
	defer cancel()
	top, err := b.fame.TopCompanies(ctx, b.cfg.TopLimit)
	if err != nil || len(top) == 0 {
		b.Answer(req, "Hall of Fame is currently not available.")
		return err
	}
	for i, tc := range top {
		when := "current game"
		if !tc.GameFinished.IsZero() {
			when = "game finished on " + tc.GameFinished.Format("15:04:05 02.01.2006")
		}
		b.Answer(req, numberPrinter.Sprintf("%d. %s - value %d GBP - %s", i+1, tc.Name, tc.TopValue, when))
	}
	if b.cfg.HallOfFameLink != "" {
		b.Answer(req, b.cfg.HallOfFameLink)
	}
	return nil
}

func cmdWho(b *Bot, req Request) error {
	if b.state == nil {
		return errors.New("bot: no game state")
	}
	for _, c := range b.state.Clients() {
		if c.ID == 1 {
			continue
		}
		line := c.Name + " as spectator"
		if !c.Spectating() {
			if co, ok := b.state.Company(c.CompanyID); ok && co.Info.Name != "" {
				line = fmt.Sprintf("%s as %s/%s", c.Name, co.Info.Name, co.Info.Colour)
			} else {
				line = fmt.Sprintf("%s as company %d", c.Name, int(c.CompanyID)+1)
			}
		}
		b.Answer(req, line)
	}
	return nil
}

func cmdHelp(b *Bot, req Request) error {
	b.Reply(req.Sender, "Available commands:")
	for _, c := range b.commands.List() {
		b.Reply(req.Sender, c.Usage+": "+c.Summary)
	}
	if b.cfg.HelpMessage != "" {
		b.Reply(req.Sender, b.cfg.HelpMessage)
	}
	return nil
}
