package smarthome

import "strings"

// roomNames is the set of known individual room names the fast path
// recognises when extracting a room from free text. Representative subset
// of the source's room_names list.
var roomNames = []string{
	"master bedroom", "master bath", "guest room", "living room", "dining room",
	"family room", "laundry room", "first floor", "second floor",
	"office", "kitchen", "bedroom", "bathroom", "hallway", "hall",
	"basement", "attic", "garage", "porch", "deck", "patio",
	"den", "study", "library", "alpha", "beta", "downstairs", "upstairs",
}

// roomGroup is a logical collection of rooms, e.g. "downstairs" fans out
// to every member room's light group (spec §4.5 "room-group commands").
type roomGroup struct {
	DisplayName string
	Members     []string
}

// roomGroups mirrors the configuration table the admin client resolves
// room-group names against (admin_config.resolve_room_group in the
// source); here it is a static table per the Open Question decision in
// DESIGN.md to keep keyword/config tables inline as Go data.
var roomGroups = map[string]roomGroup{
	"downstairs": {
		DisplayName: "downstairs",
		Members:     []string{"kitchen", "living room", "dining room", "family room"},
	},
	"upstairs": {
		DisplayName: "upstairs",
		Members:     []string{"master bedroom", "bedroom", "office", "bathroom"},
	},
	"first floor": {
		DisplayName: "first floor",
		Members:     []string{"kitchen", "living room", "dining room", "family room"},
	},
	"second floor": {
		DisplayName: "second floor",
		Members:     []string{"master bedroom", "bedroom", "office", "bathroom"},
	},
}

func resolveRoomGroup(room string) (roomGroup, bool) {
	g, ok := roomGroups[room]
	return g, ok
}

// extractRoom finds the first known room name present in the query,
// preferring longer/more specific names implicitly by table order.
func extractRoom(queryLower string) (string, bool) {
	return firstContains(queryLower, roomNames)
}

func firstContains(haystack string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if strings.Contains(haystack, c) {
			return c, true
		}
	}
	return "", false
}
