// Package bot answers in-game chat commands and reports game events to an
// administrator channel.
//
// Commands start with "!" and are looked up in a Registry built by the
// caller. Replies go back as private chat to the issuer, or to everyone when
// the command was said in public chat.
package bot
