package service

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidStyleMode = errors.New("style mode must be \"on\" or \"off\"")

// AdmissionGate decides which callers may reach the bot at all.
// Callers it rejects are ignored without a reply.
type AdmissionGate struct {
	allowedServerID string
	allowedUsers    map[string]struct{}
}

func NewAdmissionGate(allowedServerID string, allowedUserIDs []string) *AdmissionGate {
	users := make(map[string]struct{}, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			users[id] = struct{}{}
		}
	}
	return &AdmissionGate{allowedServerID: allowedServerID, allowedUsers: users}
}

// Allow reports whether userID may use the bot in guildID.
func (g *AdmissionGate) Allow(guildID, userID string) bool {
	if guildID == "" || guildID != g.allowedServerID {
		return false
	}
	return g.AllowUser(userID)
}

// AllowUser checks only the user list, for transports without a guild.
func (g *AdmissionGate) AllowUser(userID string) bool {
	_, ok := g.allowedUsers[userID]
	return ok
}

func (g *AdmissionGate) AllowedServerID() string {
	return g.allowedServerID
}

// ParseStyleMode maps the "on"/"off" selector to the style mode flag.
func ParseStyleMode(status string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: got %q", ErrInvalidStyleMode, status)
	}
}
