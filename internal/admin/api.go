package admin

import (
	"errors"

	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/protocol/session"
)

func (c *Client) send(p protocol.Packet) error {
	if err := c.lifecycle(); err != nil {
		return err
	}
	buf, err := protocol.Encode(p, c.machine.Version())
	if err != nil {
		return err
	}
	if err := c.outbox.PushCommand(buf); err != nil {
		if errors.Is(err, session.ErrOutboxClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// subscribe records f for t. An active session gets the change right away;
// otherwise it goes out with the next replay.
func (c *Client) subscribe(t protocol.UpdateType, f protocol.Frequency) error {
	c.lifeMu.Lock()
	closed := c.closed
	c.lifeMu.Unlock()
	if closed {
		return ErrClosed
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()
	changed, err := c.subs.Set(t, f)
	if err != nil || !changed {
		return err
	}
	if c.machine.State() != session.StateActive {
		return nil
	}
	err = c.pushSession(c.activeGen.Load(), protocol.UpdateFrequency{Update: t, Frequency: f})
	if errors.Is(err, session.ErrStaleSession) || errors.Is(err, session.ErrOutboxClosed) {
		return nil
	}
	return err
}

func streamFrequency(on bool) protocol.Frequency {
	if on {
		return protocol.FreqAutomatic
	}
	return protocol.FreqNone
}

func pollOrAutomatic(automatic bool) protocol.Frequency {
	if automatic {
		return protocol.FreqAutomatic
	}
	return protocol.FreqPoll
}

// Subscription

func (c *Client) SetUpdateDates(f protocol.Frequency) error {
	return c.subscribe(protocol.UpdateDate, f)
}

func (c *Client) SetUpdateClientInfos(automatic bool) error {
	return c.subscribe(protocol.UpdateClientInfo, pollOrAutomatic(automatic))
}

func (c *Client) SetUpdateCompanyInfos(automatic bool) error {
	return c.subscribe(protocol.UpdateCompanyInfo, pollOrAutomatic(automatic))
}

func (c *Client) SetUpdateCompanyEconomy(f protocol.Frequency) error {
	return c.subscribe(protocol.UpdateCompanyEconomy, f)
}

func (c *Client) SetUpdateCompanyStatistics(f protocol.Frequency) error {
	return c.subscribe(protocol.UpdateCompanyStats, f)
}

func (c *Client) SetUpdateCommandNames(automatic bool) error {
	return c.subscribe(protocol.UpdateCmdNames, pollOrAutomatic(automatic))
}

func (c *Client) SetDeliveryChat(on bool) error {
	return c.subscribe(protocol.UpdateChat, streamFrequency(on))
}

func (c *Client) SetDeliveryConsole(on bool) error {
	return c.subscribe(protocol.UpdateConsole, streamFrequency(on))
}

func (c *Client) SetDeliveryCommandLogs(on bool) error {
	return c.subscribe(protocol.UpdateCmdLogging, streamFrequency(on))
}

func (c *Client) SetDeliveryGameScripts(on bool) error {
	return c.subscribe(protocol.UpdateGamescript, streamFrequency(on))
}

// Subscription returns the frequency currently recorded for t.
func (c *Client) Subscription(t protocol.UpdateType) protocol.Frequency {
	return c.subs.Get(t)
}

// Polls

func (c *Client) poll(t protocol.UpdateType, param uint32) error {
	return c.send(protocol.Poll{Update: t, Param: param})
}

func (c *Client) RequestDate() error { return c.poll(protocol.UpdateDate, 0) }

func (c *Client) RequestClientInfo(id uint32) error {
	return c.poll(protocol.UpdateClientInfo, id)
}

func (c *Client) RequestAllClientsInfo() error {
	return c.poll(protocol.UpdateClientInfo, protocol.AllClients)
}

// RequestServerInfo asks for the server's own client entry.
func (c *Client) RequestServerInfo() error {
	return c.poll(protocol.UpdateClientInfo, protocol.ServerClientID)
}

func (c *Client) RequestCompanyInfo(id uint8) error {
	return c.poll(protocol.UpdateCompanyInfo, uint32(id))
}

func (c *Client) RequestAllCompaniesInfo() error {
	return c.poll(protocol.UpdateCompanyInfo, protocol.AllClients)
}

func (c *Client) RequestCompanyEconomy() error { return c.poll(protocol.UpdateCompanyEconomy, 0) }

func (c *Client) RequestCompanyStatistics() error { return c.poll(protocol.UpdateCompanyStats, 0) }

func (c *Client) RequestCommandNames() error { return c.poll(protocol.UpdateCmdNames, 0) }

// Commands

// ExecuteRCon runs a console command; output arrives as RconResult events
// followed by RconFinished.
func (c *Client) ExecuteRCon(command string) error {
	return c.send(protocol.Rcon{Command: command})
}

func (c *Client) SendChat(action protocol.NetworkAction, dest protocol.DestType, destID uint32, text string) error {
	return c.send(protocol.Chat{Action: action, Dest: dest, DestID: destID, Text: text})
}

// SendBroadcast is SendChat to everyone.
func (c *Client) SendBroadcast(text string) error {
	return c.SendChat(protocol.ActionChat, protocol.DestBroadcast, 0, text)
}

// SendPrivate whispers text to one client.
func (c *Client) SendPrivate(clientID uint32, text string) error {
	return c.SendChat(protocol.ActionChatClient, protocol.DestClient, clientID, text)
}

func (c *Client) SendExternalChat(source string, colour protocol.TextColour, user, message string) error {
	return c.send(protocol.ExternalChat{Source: source, Colour: colour, User: user, Message: message})
}

func (c *Client) SendGamescript(json string) error {
	return c.send(protocol.Gamescript{JSON: json})
}

func (c *Client) SendPing(payload uint32) error {
	return c.send(protocol.Ping{Payload: payload})
}

// Quit asks the server to end the session politely. The client will
// reconnect unless it is closed as well.
func (c *Client) Quit() error {
	return c.send(protocol.Quit{})
}
