// Package slack bridges a Slack channel with a game over Socket Mode.
//
// Channel messages are relayed into the game as external chat, slash
// commands map onto console commands and status reports, and Client
// implements bot.Notifier so game events can be posted back.
package slack
