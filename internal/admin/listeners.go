package admin

import (
	"github.com/danmuck/ottdctl/internal/gamedate"
	"github.com/danmuck/ottdctl/internal/protocol"
)

// ServerListener receives session and server-wide events.
type ServerListener interface {
	// Connected fires when the server answered Join with its protocol version.
	Connected(version uint8)
	Disconnected()
	ServerInfoReceived(info ServerInfo)
	WrongPassword()
	ServerError(code protocol.ErrorCode)
	ConsoleMessage(origin, message string)
	RconResult(colour protocol.TextColour, result string)
	RconFinished(command string)
	NewGame()
	NewDate(date gamedate.Date)
	CommandNames(names []protocol.CommandName)
	CommandLogged(entry CommandLog)
	GameScript(json string)
	Pong(payload uint32)
	ServerFull()
	ServerBanned()
	Shutdown()
}

type CompanyListener interface {
	CompanyCreated(id uint8)
	CompanyRemoved(id uint8, reason protocol.RemoveReason)
	CompanyUpdated(info CompanyInfo)
	CompanyInfoReceived(info CompanyInfo)
	CompanyEconomyReceived(economy CompanyEconomy)
	CompanyStatisticsReceived(stats CompanyStatistics)
}

type ClientListener interface {
	ClientJoined(id uint32)
	ClientInfoReceived(info ClientInfo)
	ClientUpdated(update ClientUpdate)
	ClientQuit(id uint32)
	ClientError(id uint32, code protocol.ErrorCode)
}

type ChatListener interface {
	ChatReceived(msg ChatMessage)
}

// BaseServerListener implements ServerListener with no-ops. Embed it and
// override what you need.
type BaseServerListener struct{}

func (BaseServerListener) Connected(uint8)                        {}
func (BaseServerListener) Disconnected()                          {}
func (BaseServerListener) ServerInfoReceived(ServerInfo)          {}
func (BaseServerListener) WrongPassword()                         {}
func (BaseServerListener) ServerError(protocol.ErrorCode)         {}
func (BaseServerListener) ConsoleMessage(string, string)          {}
func (BaseServerListener) RconResult(protocol.TextColour, string) {}
func (BaseServerListener) RconFinished(string)                    {}
func (BaseServerListener) NewGame()                               {}
func (BaseServerListener) NewDate(gamedate.Date)                  {}
func (BaseServerListener) CommandNames([]protocol.CommandName)    {}
func (BaseServerListener) CommandLogged(CommandLog)               {}
func (BaseServerListener) GameScript(string)                      {}
func (BaseServerListener) Pong(uint32)                            {}
func (BaseServerListener) ServerFull()                            {}
func (BaseServerListener) ServerBanned()                          {}
func (BaseServerListener) Shutdown()                              {}

type BaseCompanyListener struct{}

func (BaseCompanyListener) CompanyCreated(uint8)                        {}
func (BaseCompanyListener) CompanyRemoved(uint8, protocol.RemoveReason) {}
func (BaseCompanyListener) CompanyUpdated(CompanyInfo)                  {}
func (BaseCompanyListener) CompanyInfoReceived(CompanyInfo)             {}
func (BaseCompanyListener) CompanyEconomyReceived(CompanyEconomy)       {}
func (BaseCompanyListener) CompanyStatisticsReceived(CompanyStatistics) {}

type BaseClientListener struct{}

func (BaseClientListener) ClientJoined(uint32)                    {}
func (BaseClientListener) ClientInfoReceived(ClientInfo)          {}
func (BaseClientListener) ClientUpdated(ClientUpdate)             {}
func (BaseClientListener) ClientQuit(uint32)                      {}
func (BaseClientListener) ClientError(uint32, protocol.ErrorCode) {}

var (
	_ ServerListener  = BaseServerListener{}
	_ CompanyListener = BaseCompanyListener{}
	_ ClientListener  = BaseClientListener{}
)
