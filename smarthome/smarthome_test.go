package smarthome

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFastPathSimpleTurnOff(t *testing.T) {
	intent, ok := matchFastPath("turn off the office lights", "")
	require.True(t, ok)
	assert.Equal(t, DeviceLight, intent.DeviceType)
	assert.Equal(t, "office", intent.Room)
	assert.Equal(t, ActionTurnOff, intent.Action)
}

func TestFastPathWholeHouseExclusion(t *testing.T) {
	intent, ok := matchFastPath("turn off all the lights except the bedroom", "")
	require.True(t, ok)
	assert.Equal(t, RoomWholeHouse, intent.Room)
	assert.Equal(t, ActionTurnOff, intent.Action)
	assert.Equal(t, []string{"bedroom"}, intent.ExcludedRooms)
}

func TestFastPathWholeHouseNoExclusion(t *testing.T) {
	intent, ok := matchFastPath("turn off all the lights", "")
	require.True(t, ok)
	assert.Equal(t, RoomWholeHouse, intent.Room)
	assert.Empty(t, intent.ExcludedRooms)
}

func TestFastPathLockStatusQuery(t *testing.T) {
	intent, ok := matchFastPath("is the front door locked", "")
	require.True(t, ok)
	assert.Equal(t, DeviceLock, intent.DeviceType)
	assert.Equal(t, ActionGetStatus, intent.Action)
	assert.Equal(t, "front_door", intent.Room)
}

func TestFastPathLockCommand(t *testing.T) {
	intent, ok := matchFastPath("lock the back door", "")
	require.True(t, ok)
	assert.Equal(t, ActionLock, intent.Action)
	assert.Equal(t, "back_door", intent.Room)
}

func TestFastPathBedWarmerDualSide(t *testing.T) {
	intent, ok := matchFastPath("warm my side of the bed", "")
	require.True(t, ok)
	assert.Equal(t, DeviceBedWarmer, intent.DeviceType)
	assert.Equal(t, "left", intent.Parameters["side"])
}

func TestFastPathSportsPalette(t *testing.T) {
	intent, ok := matchFastPath("turn the lights ravens colors", "")
	require.True(t, ok)
	assert.Equal(t, ActionSetColor, intent.Action)
	assert.Equal(t, "Ravens purple and gold", intent.ColorDescription)
}

func TestFastPathAmbientPalette(t *testing.T) {
	intent, ok := matchFastPath("make it feel like sunset", "")
	require.True(t, ok)
	assert.Equal(t, "warm sunset oranges and reds", intent.ColorDescription)
}

func TestFastPathMultiRoom(t *testing.T) {
	intent, ok := matchFastPath("turn off the kitchen and the office lights", "")
	require.True(t, ok)
	assert.Equal(t, RoomMultiRoom, intent.Room)
	assert.ElementsMatch(t, []string{"kitchen", "office"}, intent.Rooms)
}

func TestFastPathFallsThroughToLLM(t *testing.T) {
	_, ok := matchFastPath("what do you think about the weather in general", "")
	assert.False(t, ok)
}

func TestDetectSequenceExcludesScenes(t *testing.T) {
	assert.False(t, DetectSequence("good night"))
}

func TestDetectSequenceExcludesBrightness(t *testing.T) {
	assert.False(t, DetectSequence("put all lights at half"))
}

func TestDetectSequenceDetectsDelay(t *testing.T) {
	assert.True(t, DetectSequence("turn on the lights, wait 5 minutes, then turn them off"))
}

func TestDetectSequenceDetectsSchedule(t *testing.T) {
	assert.True(t, DetectSequence("turn off the lights at 11pm"))
}

func TestHeuristicFallbackOnParseFailure(t *testing.T) {
	intent := heuristicFallback("turn on the lights please")
	assert.Equal(t, ActionTurnOn, intent.Action)
}

// fakeHomeAPI is a test double recording every call for assertion. Calls
// arrive from parallel goroutines, so order is not preserved — tests that
// need per-entity data key off byEntity instead of list position.
type fakeHomeAPI struct {
	mu        sync.Mutex
	calls     []map[string]any
	byEntity  map[string]map[string]any
	groups    []LightGroup
	roomIndex map[string][]string
	failEvery int
	callCount int
}

func (f *fakeHomeAPI) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	f.calls = append(f.calls, data)
	if f.byEntity == nil {
		f.byEntity = make(map[string]map[string]any)
	}
	if entity, ok := data["entity_id"].(string); ok {
		f.byEntity[entity] = data
	}
	if f.failEvery > 0 && f.callCount%f.failEvery == 0 {
		return assert.AnError
	}
	return nil
}

func (f *fakeHomeAPI) LightGroups(ctx context.Context) ([]LightGroup, error) {
	return f.groups, nil
}

func (f *fakeHomeAPI) LightsForRoom(ctx context.Context, room string) ([]string, error) {
	return f.roomIndex[room], nil
}

func TestExecuteWholeHouseExcludesBedroom(t *testing.T) {
	api := &fakeHomeAPI{
		groups: []LightGroup{
			{FriendlyName: "Kitchen Lights", EntityID: "light.kitchen", Members: []string{"light.kitchen_1"}},
			{FriendlyName: "Bedroom Lights", EntityID: "light.bedroom", Members: []string{"light.bedroom_1"}},
			{FriendlyName: "Office Lights", EntityID: "light.office", Members: []string{"light.office_1"}},
		},
	}
	c := NewController(api, zap.NewNop())

	intent := Intent{
		DeviceType:    DeviceLight,
		Room:          RoomWholeHouse,
		ExcludedRooms: []string{"bedroom"},
		Action:        ActionTurnOff,
		TargetScope:   ScopeGroup,
	}

	_, err := c.Execute(context.Background(), intent)
	require.NoError(t, err)

	for _, call := range api.calls {
		assert.NotEqual(t, "light.bedroom_1", call["entity_id"], "no call should target an excluded room's entity")
	}
	assert.Len(t, api.calls, 2)
}

func TestExecuteSingleRoomTurnOn(t *testing.T) {
	api := &fakeHomeAPI{
		roomIndex: map[string][]string{"office": {"light.office_1", "light.office_2"}},
	}
	c := NewController(api, zap.NewNop())

	intent := Intent{DeviceType: DeviceLight, Room: "office", Action: ActionTurnOn, TargetScope: ScopeGroup}
	resp, err := c.Execute(context.Background(), intent)
	require.NoError(t, err)
	assert.Contains(t, resp, "turned on")
	assert.Len(t, api.calls, 2)
}

func TestExecuteRoomGroupFansOutToMembers(t *testing.T) {
	api := &fakeHomeAPI{
		roomIndex: map[string][]string{
			"kitchen":     {"light.kitchen_1"},
			"living room": {"light.living_1"},
			"dining room": {"light.dining_1"},
			"family room": {"light.family_1"},
		},
	}
	c := NewController(api, zap.NewNop())

	intent := Intent{DeviceType: DeviceLight, Room: "downstairs", Action: ActionTurnOff, TargetScope: ScopeGroup}
	_, err := c.Execute(context.Background(), intent)
	require.NoError(t, err)
	assert.Len(t, api.calls, 4)
}

func TestExecuteContinuesOnPerEntityFailure(t *testing.T) {
	api := &fakeHomeAPI{
		roomIndex: map[string][]string{"office": {"light.office_1", "light.office_2", "light.office_3"}},
		failEvery: 2,
	}
	c := NewController(api, zap.NewNop())

	intent := Intent{DeviceType: DeviceLight, Room: "office", Action: ActionTurnOn, TargetScope: ScopeGroup}
	resp, err := c.Execute(context.Background(), intent)
	require.NoError(t, err, "a single entity failure must not abort the batch")
	assert.NotEmpty(t, resp)
	assert.Len(t, api.calls, 3)
}

func TestExecuteSetColorDistributesRoundRobin(t *testing.T) {
	api := &fakeHomeAPI{
		roomIndex: map[string][]string{"office": {"light.a", "light.b", "light.c", "light.d"}},
	}
	c := NewController(api, zap.NewNop())

	intent := Intent{
		DeviceType:  DeviceLight,
		Room:        "office",
		Action:      ActionSetColor,
		TargetScope: ScopeAllIndividual,
		Parameters:  map[string]any{"hs_colors": hsColorsToParam([]HSColor{{0, 100}, {120, 100}})},
	}
	_, err := c.Execute(context.Background(), intent)
	require.NoError(t, err)
	require.Len(t, api.calls, 4)
	assert.Equal(t, []int{0, 100}, api.byEntity["light.a"]["hs_color"])
	assert.Equal(t, []int{120, 100}, api.byEntity["light.b"]["hs_color"])
	assert.Equal(t, []int{0, 100}, api.byEntity["light.c"]["hs_color"])
	assert.Equal(t, []int{120, 100}, api.byEntity["light.d"]["hs_color"])
}
