package protocol

import (
	"fmt"

	"golang.org/x/text/language"
)

// SupportedVersion is the newest admin protocol version this codec understands.
const SupportedVersion uint8 = 3

// Poll parameters.
const (
	AllClients     uint32 = 0xFFFFFFFF
	ServerClientID uint32 = 1
)

// PacketType is the one-byte discriminant that follows the length prefix.
type PacketType uint8

const (
	TypeAdminJoin            PacketType = 0
	TypeAdminQuit            PacketType = 1
	TypeAdminUpdateFrequency PacketType = 2
	TypeAdminPoll            PacketType = 3
	TypeAdminChat            PacketType = 4
	TypeAdminRcon            PacketType = 5
	TypeAdminGamescript      PacketType = 6
	TypeAdminPing            PacketType = 7
	TypeAdminExternalChat    PacketType = 8

	TypeServerFull           PacketType = 100
	TypeServerBanned         PacketType = 101
	TypeServerError          PacketType = 102
	TypeServerProtocol       PacketType = 103
	TypeServerWelcome        PacketType = 104
	TypeServerNewGame        PacketType = 105
	TypeServerShutdown       PacketType = 106
	TypeServerDate           PacketType = 107
	TypeServerClientJoin     PacketType = 108
	TypeServerClientInfo     PacketType = 109
	TypeServerClientUpdate   PacketType = 110
	TypeServerClientQuit     PacketType = 111
	TypeServerClientError    PacketType = 112
	TypeServerCompanyNew     PacketType = 113
	TypeServerCompanyInfo    PacketType = 114
	TypeServerCompanyUpdate  PacketType = 115
	TypeServerCompanyRemove  PacketType = 116
	TypeServerCompanyEconomy PacketType = 117
	TypeServerCompanyStats   PacketType = 118
	TypeServerChat           PacketType = 119
	TypeServerRcon           PacketType = 120
	TypeServerConsole        PacketType = 121
	TypeServerCmdNames       PacketType = 122
	TypeServerCmdLogging     PacketType = 123
	TypeServerGamescript     PacketType = 124
	TypeServerRconEnd        PacketType = 125
	TypeServerPong           PacketType = 126

	TypeInvalid PacketType = 0xFF
)

var packetTypeNames = map[PacketType]string{
	TypeAdminJoin:            "admin_join",
	TypeAdminQuit:            "admin_quit",
	TypeAdminUpdateFrequency: "admin_update_frequency",
	TypeAdminPoll:            "admin_poll",
	TypeAdminChat:            "admin_chat",
	TypeAdminRcon:            "admin_rcon",
	TypeAdminGamescript:      "admin_gamescript",
	TypeAdminPing:            "admin_ping",
	TypeAdminExternalChat:    "admin_external_chat",
	TypeServerFull:           "server_full",
	TypeServerBanned:         "server_banned",
	TypeServerError:          "server_error",
	TypeServerProtocol:       "server_protocol",
	TypeServerWelcome:        "server_welcome",
	TypeServerNewGame:        "server_newgame",
	TypeServerShutdown:       "server_shutdown",
	TypeServerDate:           "server_date",
	TypeServerClientJoin:     "server_client_join",
	TypeServerClientInfo:     "server_client_info",
	TypeServerClientUpdate:   "server_client_update",
	TypeServerClientQuit:     "server_client_quit",
	TypeServerClientError:    "server_client_error",
	TypeServerCompanyNew:     "server_company_new",
	TypeServerCompanyInfo:    "server_company_info",
	TypeServerCompanyUpdate:  "server_company_update",
	TypeServerCompanyRemove:  "server_company_remove",
	TypeServerCompanyEconomy: "server_company_economy",
	TypeServerCompanyStats:   "server_company_stats",
	TypeServerChat:           "server_chat",
	TypeServerRcon:           "server_rcon",
	TypeServerConsole:        "server_console",
	TypeServerCmdNames:       "server_cmd_names",
	TypeServerCmdLogging:     "server_cmd_logging",
	TypeServerGamescript:     "server_gamescript",
	TypeServerRconEnd:        "server_rcon_end",
	TypeServerPong:           "server_pong",
	TypeInvalid:              "invalid",
}

func (t PacketType) String() string {
	if name, ok := packetTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("packet_%d", uint8(t))
}

// Inbound reports whether t is sent by the server.
func (t PacketType) Inbound() bool {
	return t >= TypeServerFull && t <= TypeServerPong
}

// UpdateType is what a subscription is about.
type UpdateType uint16

const (
	UpdateDate UpdateType = iota
	UpdateClientInfo
	UpdateCompanyInfo
	UpdateCompanyEconomy
	UpdateCompanyStats
	UpdateChat
	UpdateConsole
	UpdateCmdNames
	UpdateCmdLogging
	UpdateGamescript
	updateTypeEnd
)

var updateTypeNames = [...]string{
	"date", "client_info", "company_info", "company_economy", "company_stats",
	"chat", "console", "cmd_names", "cmd_logging", "gamescript",
}

func (u UpdateType) String() string {
	if u < updateTypeEnd {
		return updateTypeNames[u]
	}
	return fmt.Sprintf("update_%d", uint16(u))
}

// Valid reports whether u is a known update type.
func (u UpdateType) Valid() bool { return u < updateTypeEnd }

// Frequency is a bitmask of delivery cadences.
type Frequency uint16

const (
	FreqNone      Frequency = 0x00
	FreqPoll      Frequency = 0x01
	FreqDaily     Frequency = 0x02
	FreqWeekly    Frequency = 0x04
	FreqMonthly   Frequency = 0x08
	FreqQuarterly Frequency = 0x10
	FreqAnnually  Frequency = 0x20
	FreqAutomatic Frequency = 0x40
)

var freqNames = []struct {
	bit  Frequency
	name string
}{
	{FreqPoll, "poll"},
	{FreqDaily, "daily"},
	{FreqWeekly, "weekly"},
	{FreqMonthly, "monthly"},
	{FreqQuarterly, "quarterly"},
	{FreqAnnually, "annually"},
	{FreqAutomatic, "automatic"},
}

// Has reports whether every bit of mask is set in f.
func (f Frequency) Has(mask Frequency) bool { return f&mask == mask }

func (f Frequency) String() string {
	if f == FreqNone {
		return "none"
	}
	out := ""
	for _, fn := range freqNames {
		if f&fn.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += fn.name
		}
	}
	if rest := f &^ 0x7f; rest != 0 {
		if out != "" {
			out += "|"
		}
		out += fmt.Sprintf("0x%x", uint16(rest))
	}
	return out
}

// ParseFrequency maps a single cadence name onto its bit.
func ParseFrequency(name string) (Frequency, error) {
	if name == "none" || name == "" {
		return FreqNone, nil
	}
	for _, fn := range freqNames {
		if fn.name == name {
			return fn.bit, nil
		}
	}
	return FreqNone, fmt.Errorf("protocol: unknown update frequency %q", name)
}

// ErrorCode is the vocabulary of server-side network errors.
type ErrorCode uint8

const (
	ErrCodeGeneral ErrorCode = iota
	ErrCodeDesync
	ErrCodeSavegameFailed
	ErrCodeConnectionLost
	ErrCodeIllegalPacket
	ErrCodeNewGRFMismatch
	ErrCodeNotAuthorized
	ErrCodeNotExpected
	ErrCodeWrongRevision
	ErrCodeNameInUse
	ErrCodeWrongPassword
	ErrCodeCompanyMismatch
	ErrCodeKicked
	ErrCodeCheater
	ErrCodeFull
	ErrCodeTooManyCommands
	ErrCodeTimeoutPassword
	ErrCodeTimeoutComputer
	ErrCodeTimeoutMap
	ErrCodeTimeoutJoin
	errCodeEnd
)

var errorCodeNames = [...]string{
	"general", "desync", "savegame_failed", "connection_lost", "illegal_packet",
	"newgrf_mismatch", "not_authorized", "not_expected", "wrong_revision",
	"name_in_use", "wrong_password", "company_mismatch", "kicked", "cheater",
	"full", "too_many_commands", "timeout_password", "timeout_computer",
	"timeout_map", "timeout_join",
}

func (c ErrorCode) String() string {
	if c < errCodeEnd {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("error_%d", uint8(c))
}

// NetworkAction classifies chat and client notifications.
type NetworkAction uint8

const (
	ActionJoin NetworkAction = iota
	ActionLeave
	ActionServerMessage
	ActionChat
	ActionChatCompany
	ActionChatClient
	ActionGiveMoney
	ActionNameChange
	ActionCompanySpectator
	ActionCompanyJoin
	ActionCompanyNew
	ActionKicked
)

// DestType addresses a chat message.
type DestType uint8

const (
	DestBroadcast DestType = iota
	DestTeam
	DestClient
)

// RemoveReason explains why a company disappeared.
type RemoveReason uint8

const (
	RemoveManual RemoveReason = iota
	RemoveAutoclean
	RemoveBankrupt
)

func (r RemoveReason) String() string {
	switch r {
	case RemoveManual:
		return "manual"
	case RemoveAutoclean:
		return "autoclean"
	case RemoveBankrupt:
		return "bankrupt"
	}
	return fmt.Sprintf("reason_%d", uint8(r))
}

// Colour is a company livery colour.
type Colour uint8

const (
	ColourDarkBlue Colour = iota
	ColourPaleGreen
	ColourPink
	ColourYellow
	ColourRed
	ColourLightBlue
	ColourGreen
	ColourDarkGreen
	ColourBlue
	ColourCream
	ColourMauve
	ColourPurple
	ColourOrange
	ColourBrown
	ColourGrey
	ColourWhite
	colourEnd
)

var colourNames = [...]string{
	"dark_blue", "pale_green", "pink", "yellow", "red", "light_blue", "green",
	"dark_green", "blue", "cream", "mauve", "purple", "orange", "brown", "grey", "white",
}

func (c Colour) String() string {
	if c < colourEnd {
		return colourNames[c]
	}
	return fmt.Sprintf("colour_%d", uint8(c))
}

// TextColour is the colour of console and rcon output.
type TextColour uint16

const (
	TextBlue       TextColour = 0x00
	TextSilver     TextColour = 0x01
	TextGold       TextColour = 0x02
	TextRed        TextColour = 0x03
	TextPurple     TextColour = 0x04
	TextLightBrown TextColour = 0x05
	TextOrange     TextColour = 0x06
	TextGreen      TextColour = 0x07
	TextYellow     TextColour = 0x08
	TextDarkGreen  TextColour = 0x09
	TextCream      TextColour = 0x0A
	TextBrown      TextColour = 0x0B
	TextWhite      TextColour = 0x0C
	TextLightBlue  TextColour = 0x0D
	TextGrey       TextColour = 0x0E
	TextDarkBlue   TextColour = 0x0F
	TextBlack      TextColour = 0x10
	TextInvalid    TextColour = 0xFF

	TextFromString TextColour = TextBlue

	TextIsPaletteColour TextColour = 0x100
	TextNoShade         TextColour = 0x200
	TextForced          TextColour = 0x400
)

// Language is the client's preferred network language.
type Language uint8

var languageTags = [...]language.Tag{
	language.Und,
	language.English,
	language.German,
	language.French,
	language.BrazilianPortuguese,
	language.Bulgarian,
	language.Chinese,
	language.Czech,
	language.Danish,
	language.Dutch,
	language.MustParse("eo"),
	language.Finnish,
	language.Hungarian,
	language.Icelandic,
	language.Italian,
	language.Japanese,
	language.Korean,
	language.Lithuanian,
	language.Norwegian,
	language.Polish,
	language.Portuguese,
	language.Romanian,
	language.Russian,
	language.Slovak,
	language.Slovenian,
	language.Spanish,
	language.Swedish,
	language.Turkish,
	language.Ukrainian,
	language.Afrikaans,
	language.Croatian,
	language.Catalan,
	language.Estonian,
	language.MustParse("gl"),
	language.Greek,
	language.Latvian,
}

const LanguageAny Language = 0

// Tag returns the BCP 47 tag for l; unknown and "any" map to language.Und.
func (l Language) Tag() language.Tag {
	if int(l) < len(languageTags) {
		return languageTags[l]
	}
	return language.Und
}

func (l Language) String() string {
	if l == LanguageAny || int(l) >= len(languageTags) {
		return "any"
	}
	return l.Tag().String()
}
