package slack

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/bot"
	"github.com/danmuck/ottdctl/internal/gamestate"
	"github.com/rs/zerolog/log"
)

var (
	paramPattern    = regexp.MustCompile(`"([^"]*)"|([^ \t"]+)`)
	clientIDPattern = regexp.MustCompile(`^[1-9][0-9]*$`)
)

// parameters splits a slash command line into words; double quotes group.
func parameters(line string) []string {
	var out []string
	for _, m := range paramPattern.FindAllStringSubmatch(line, -1) {
		if m[2] != "" {
			out = append(out, m[2])
		} else {
			out = append(out, m[1])
		}
	}
	return out
}

func (c *Client) handleSlash(raw json.RawMessage) string {
	var p slashPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn().Msgf("slack.Client bad slash command err=%v", err)
		return ""
	}
	if p.ChannelID != c.cfg.Channel {
		return "This channel is not bridged with a game."
	}
	log.Info().Msgf("slack.Client command user=%s command=%s text=%q", p.UserName, p.Command, p.Text)
	reply, err := c.runSlash(p.Command, strings.TrimSpace(p.Text))
	if err != nil {
		log.Warn().Msgf("slack.Client command=%s err=%v", p.Command, err)
		return ":warning: " + err.Error()
	}
	return reply
}

func (c *Client) runSlash(command, text string) (string, error) {
	params := parameters(text)
	switch command {
	case "/date":
		s := c.state.Snapshot()
		if !s.HasDate {
			return ":computer: Game date unknown", nil
		}
		return ":computer: Game date " + s.Date.String(), nil

	case "/kickuser":
		if len(params) != 2 {
			return `Usage: /kickuser <client_id|ip_address> "<reason>"`, nil
		}
		if id, ok := clientID(params[0]); ok {
			return "", bot.Kick(c, id, params[1])
		}
		return "", bot.KickAddress(c, params[0], params[1])

	case "/ban":
		if len(params) != 2 {
			return `Usage: /ban <client_id|ip_address> "<reason>"`, nil
		}
		if id, ok := clientID(params[0]); ok {
			return "", bot.Ban(c, id, params[1])
		}
		return "", bot.BanAddress(c, params[0], params[1])

	case "/unban":
		if len(params) != 1 {
			return "Usage: /unban <ip_address|banlist_index>", nil
		}
		return "", bot.Unban(c, params[0])

	case "/pause":
		return "", bot.Pause(c)

	case "/unpause":
		return "", bot.Unpause(c)

	case "/quit":
		if text != "roger" {
			return "In order to quit the game, provide the word 'roger' as an argument to the quit command.", nil
		}
		return "", bot.Shutdown(c)

	case "/setting":
		switch len(params) {
		case 1:
			return "", bot.SetSetting(c, params[0], "")
		case 2:
			return "", bot.SetSetting(c, params[0], params[1])
		}
		return `Usage: /setting <name> "[value]"`, nil

	case "/resetcompany":
		n, err := strconv.Atoi(strings.Join(params, ""))
		if len(params) != 1 || err != nil || n < 1 || n > int(admin.SpectatorCompany) {
			return "Usage: /resetcompany <company_id_1_based>", nil
		}
		return "", bot.ResetCompany(c, uint8(n-1))

	case "/companies":
		return describeCompanies(c.state.Snapshot()), nil

	case "/clients":
		return describeClients(c.state.Snapshot()), nil

	case "/server":
		return describeServer(c.state.Snapshot()), nil
	}
	return "Unknown command " + command, nil
}

func clientID(s string) (uint32, bool) {
	if !clientIDPattern.MatchString(s) {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

func describeCompanies(s gamestate.Snapshot) string {
	if len(s.Companies) == 0 {
		return ":office: No companies"
	}
	var b strings.Builder
	for _, company := range s.Companies {
		info := company.Info
		fmt.Fprintf(&b, ":office: %d %s (%s)\n", int(info.ID)+1, info.Name, info.Colour)
		for _, client := range s.Clients {
			if client.CompanyID == info.ID {
				fmt.Fprintf(&b, " - %d: %s\n", client.ID, client.Name)
			}
		}
		if econ := company.Economy; econ != nil {
			fmt.Fprintf(&b, " - money %d, loan %d, value %d\n", econ.Money, econ.Loan, econ.Value())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeClients(s gamestate.Snapshot) string {
	if len(s.Clients) == 0 {
		return ":bust_in_silhouette: No clients"
	}
	names := make(map[uint8]admin.CompanyInfo, len(s.Companies))
	for _, company := range s.Companies {
		names[company.Info.ID] = company.Info
	}
	var b strings.Builder
	for _, client := range s.Clients {
		fmt.Fprintf(&b, ":bust_in_silhouette: %d", client.ID)
		if client.Name != "" {
			b.WriteString(" " + client.Name)
		}
		b.WriteString("\n")
		if client.Address != "" {
			fmt.Fprintf(&b, " - %s\n", client.Address)
		}
		b.WriteString(" - plays as ")
		switch {
		case client.Spectating():
			b.WriteString("spectator")
		default:
			fmt.Fprintf(&b, "%d", int(client.CompanyID)+1)
			if info, ok := names[client.CompanyID]; ok {
				fmt.Fprintf(&b, ": %s [%s]", info.Name, info.Colour)
			}
		}
		fmt.Fprintf(&b, "\n - joined %s game time\n", client.JoinDate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeServer(s gamestate.Snapshot) string {
	var b strings.Builder
	if s.Server != nil {
		fmt.Fprintf(&b, ":computer: Server %s\n", s.Server.Name)
		fmt.Fprintf(&b, "Map %s (%dx%d), revision %s\n", s.Server.Map, s.Server.SizeX, s.Server.SizeY, s.Server.Revision)
	} else {
		b.WriteString(":computer: Server unknown\n")
	}
	if s.Connected {
		b.WriteString("Currently connected\n")
	} else {
		b.WriteString("Currently disconnected\n")
	}
	if s.HasDate {
		fmt.Fprintf(&b, "Game-Date %s\n", s.Date)
	}
	fmt.Fprintf(&b, "No. clients %d\nNo. companies %d", len(s.Clients), len(s.Companies))
	return b.String()
}
