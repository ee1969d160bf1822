package gateway

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// knownRooms short-circuits detection when the caller already passes one
// of these as a device ID, matching _detect_room_from_active_satellite's
// early-return for already-resolved rooms.
var knownRooms = map[string]bool{
	"office": true, "kitchen": true, "living_room": true,
	"master_bedroom": true, "bedroom": true, "dining_room": true,
}

// defaultRoom is returned whenever detection fails for any reason, exactly
// as the Python original defaults to "office".
const defaultRoom = "office"

// recentChangeWindow is how far back a satellite's last state change can
// be and still count as "recently active" on the second detection pass.
const recentChangeWindow = 10 * time.Second

// roomCacheTTL matches the original's _room_cache_ttl of 3 seconds.
const roomCacheTTL = 3 * time.Second

// satelliteNamePattern extracts the room name out of an assist_satellite
// entity's friendly_name, e.g. "Voice - Kitchen Assist" -> "Kitchen".
var satelliteNamePattern = regexp.MustCompile(`(?i)Voice\s*-\s*(.+?)\s*(Assist|$)`)

// SatelliteState is one assist_satellite entity as reported by the home-
// automation state API.
type SatelliteState struct {
	EntityID     string
	State        string
	FriendlyName string
	LastChanged  time.Time
}

// StateAPI is the capability RoomDetector needs from Home Assistant: the
// full list of assist_satellite entities and their current state, ported
// from _detect_room_from_active_satellite's direct call to /api/states.
type StateAPI interface {
	AssistSatellites(ctx context.Context) ([]SatelliteState, error)
}

// RoomDetector resolves a device ID to a physical room name, optionally
// caching lookups for roomCacheTTL when caching is enabled (mirroring the
// ha_room_detection_cache feature flag).
type RoomDetector struct {
	api          StateAPI
	logger       *zap.Logger
	cacheEnabled bool

	mu    sync.Mutex
	cache map[string]cachedRoom
}

type cachedRoom struct {
	room      string
	expiresAt time.Time
}

// NewRoomDetector builds a RoomDetector. cacheEnabled mirrors the
// ha_room_detection_cache feature flag's on/off state.
func NewRoomDetector(api StateAPI, cacheEnabled bool, logger *zap.Logger) *RoomDetector {
	return &RoomDetector{
		api:          api,
		cacheEnabled: cacheEnabled,
		cache:        make(map[string]cachedRoom),
		logger:       logger.With(zap.String("component", "gateway_room_detector")),
	}
}

// Detect resolves deviceID to a room name. deviceID that is already a
// known room name short-circuits immediately, matching the original's
// fast path for clients that already know their room.
func (d *RoomDetector) Detect(ctx context.Context, deviceID string) string {
	if knownRooms[deviceID] {
		return deviceID
	}

	if d.cacheEnabled {
		if room, ok := d.getCached(deviceID); ok {
			return room
		}
	}

	room := d.detectFromSatellites(ctx)

	if d.cacheEnabled {
		d.setCached(deviceID, room)
	}
	return room
}

func (d *RoomDetector) detectFromSatellites(ctx context.Context) string {
	satellites, err := d.api.AssistSatellites(ctx)
	if err != nil || len(satellites) == 0 {
		d.logger.Warn("assist satellite lookup failed, defaulting room", zap.Error(err))
		return defaultRoom
	}

	// First pass: any satellite that isn't idle wins immediately.
	for _, sat := range satellites {
		if sat.State != "" && sat.State != "idle" {
			if room, ok := roomFromFriendlyName(sat.FriendlyName); ok {
				return room
			}
		}
	}

	// Second pass: fall back to whichever satellite changed most recently,
	// within recentChangeWindow, sorted by recency.
	recent := make([]SatelliteState, 0, len(satellites))
	now := time.Now()
	for _, sat := range satellites {
		if !sat.LastChanged.IsZero() && now.Sub(sat.LastChanged) <= recentChangeWindow {
			recent = append(recent, sat)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].LastChanged.After(recent[j].LastChanged)
	})
	for _, sat := range recent {
		if room, ok := roomFromFriendlyName(sat.FriendlyName); ok {
			return room
		}
	}

	return defaultRoom
}

func roomFromFriendlyName(friendlyName string) (string, bool) {
	m := satelliteNamePattern.FindStringSubmatch(friendlyName)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

func (d *RoomDetector) getCached(deviceID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.cache[deviceID]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.room, true
}

func (d *RoomDetector) setCached(deviceID, room string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[deviceID] = cachedRoom{room: room, expiresAt: time.Now().Add(roomCacheTTL)}
}
