package model

import "strings"

// Well-known JID servers.
const (
	UserServer       = "s.whatsapp.net"
	HiddenUserServer = "lid"
	GroupServer      = "g.us"
	NewsletterServer = "newsletter"
	BroadcastServer  = "broadcast"
)

// StatusBroadcastUser is the user portion of the status feed address.
const StatusBroadcastUser = "status"

// JID is a chat address with the device and agent suffixes already removed.
type JID struct {
	User   string
	Server string
}

// ParseJID splits "user[.agent][:device]@server". Strings without "@" are
// treated as a bare server, matching how the protocol prints server JIDs.
func ParseJID(s string) JID {
	at := strings.IndexByte(s, '@')
	if at < 0 {
		return JID{Server: s}
	}
	user, server := s[:at], s[at+1:]
	if i := strings.IndexByte(user, ':'); i >= 0 {
		user = user[:i]
	}
	if server == UserServer || server == HiddenUserServer {
		if i := strings.IndexByte(user, '.'); i >= 0 {
			user = user[:i]
		}
	}
	return JID{User: user, Server: server}
}

// UserJID addresses a phone number on the default user server.
func UserJID(phone string) JID {
	return JID{User: phone, Server: UserServer}
}

func (j JID) String() string {
	if j.User == "" {
		return j.Server
	}
	return j.User + "@" + j.Server
}

func (j JID) IsEmpty() bool {
	return j.User == "" && j.Server == ""
}

func (j JID) IsGroup() bool {
	return j.Server == GroupServer
}

func (j JID) IsNewsletter() bool {
	return j.Server == NewsletterServer
}

// IsBroadcast covers broadcast lists and the status feed.
func (j JID) IsBroadcast() bool {
	return j.Server == BroadcastServer
}

func (j JID) IsStatusBroadcast() bool {
	return j.Server == BroadcastServer && j.User == StatusBroadcastUser
}
