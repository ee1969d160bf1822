package smarthome

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HomeAPI is the capability the controller dispatches service calls
// through. Grounded on the source's ha_client.call_service and
// entity_manager abstractions, collapsed to the two operations the
// controller actually needs from the home-automation side.
type HomeAPI interface {
	// CallService invokes one entity-scoped service call (e.g. domain
	// "light", service "turn_on", data {"entity_id": ..., "hs_color": ...}).
	CallService(ctx context.Context, domain, service string, data map[string]any) error

	// LightGroups returns every known light group (whole-house fan-out
	// enumerates these, filtering excluded rooms by name/entity_id match).
	LightGroups(ctx context.Context) ([]LightGroup, error)

	// LightsForRoom resolves a room name to its member light entities.
	LightsForRoom(ctx context.Context, room string) ([]string, error)
}

// LightGroup is one home-automation light group: a friendly name, entity
// ID, and its member entities.
type LightGroup struct {
	FriendlyName string
	EntityID     string
	Members      []string
}

// Controller extracts structured intent from free text and dispatches it.
// Grounded on smart_home_controller.py's SmartHomeController.
type Controller struct {
	api    HomeAPI
	logger *zap.Logger
}

// NewController wires a home-automation API into a controller.
func NewController(api HomeAPI, logger *zap.Logger) *Controller {
	return &Controller{api: api, logger: logger.With(zap.String("component", "smarthome_controller"))}
}

// ExtractIntent runs the fast path first, falling back to the caller-
// supplied LLM extraction function only on a miss.
func (c *Controller) ExtractIntent(query string, deviceRoom string, llmFallback func(query string) (Intent, error)) (Intent, error) {
	if intent, ok := matchFastPath(query, deviceRoom); ok {
		c.logger.Debug("fast path matched", zap.String("device_type", string(intent.DeviceType)), zap.String("action", string(intent.Action)))
		return intent, nil
	}
	if llmFallback == nil {
		return heuristicFallback(query), nil
	}
	intent, err := llmFallback(query)
	if err != nil {
		c.logger.Warn("llm intent extraction failed, degrading to heuristic", zap.Error(err))
		return heuristicFallback(query), nil
	}
	return intent, nil
}

// dispatchResult tallies per-entity outcomes for the batch summary.
type dispatchResult struct {
	succeeded int64
	failed    int64
}

func (r *dispatchResult) record(err error, logger *zap.Logger) {
	if err != nil {
		atomic.AddInt64(&r.failed, 1)
		logger.Warn("device API call failed", zap.Error(err))
		return
	}
	atomic.AddInt64(&r.succeeded, 1)
}

// callAllParallel fans out one goroutine per call, collecting per-entity
// failures without aborting the batch (spec §4.5 failure semantics). Uses
// a plain (context-less) errgroup.Group rather than WithContext, since one
// entity's failure must never cancel its siblings' in-flight calls.
func (c *Controller) callAllParallel(ctx context.Context, calls []func(context.Context) error) *dispatchResult {
	result := &dispatchResult{}
	var g errgroup.Group
	for _, call := range calls {
		call := call
		g.Go(func() error {
			result.record(call(ctx), c.logger)
			return nil
		})
	}
	g.Wait()
	return result
}

// Execute dispatches the intent's device-API calls and returns a
// voice-safe summary string.
func (c *Controller) Execute(ctx context.Context, intent Intent) (string, error) {
	switch {
	case intent.Room == RoomWholeHouse:
		return c.executeWholeHouse(ctx, intent)
	case intent.Room == RoomMultiRoom:
		return c.executeMultiRoom(ctx, intent)
	default:
		if group, ok := resolveRoomGroup(intent.Room); ok {
			return c.executeRoomGroup(ctx, group, intent)
		}
		return c.executeSingleRoom(ctx, intent)
	}
}

func (c *Controller) executeWholeHouse(ctx context.Context, intent Intent) (string, error) {
	groups, err := c.api.LightGroups(ctx)
	if err != nil {
		return "", fmt.Errorf("list light groups: %w", err)
	}

	excluded := make(map[string]bool, len(intent.ExcludedRooms))
	for _, r := range intent.ExcludedRooms {
		excluded[normalizeRoomToken(r)] = true
	}

	filtered := groups[:0:0]
	for _, g := range groups {
		if roomExcluded(g, excluded) {
			continue
		}
		filtered = append(filtered, g)
	}

	var entities []string
	for _, g := range filtered {
		members := g.Members
		if len(members) == 0 {
			members = []string{g.EntityID}
		}
		entities = append(entities, members...)
	}

	calls := c.buildLightCallsForEntities(entities, intent)
	result := c.callAllParallel(ctx, calls)
	c.logger.Info("whole-house dispatch complete", zap.Int64("succeeded", result.succeeded), zap.Int64("failed", result.failed))

	return summarizeLightResponse(intent.Action, len(filtered), intent.ColorDescription, intent.ExcludedRooms), nil
}

func roomExcluded(g LightGroup, excluded map[string]bool) bool {
	name := normalizeRoomToken(g.FriendlyName)
	id := normalizeRoomToken(g.EntityID)
	for ex := range excluded {
		if ex == "" {
			continue
		}
		if containsToken(name, ex) || containsToken(id, ex) {
			return true
		}
	}
	return false
}

func (c *Controller) executeMultiRoom(ctx context.Context, intent Intent) (string, error) {
	var calls []func(context.Context) error
	for _, room := range intent.Rooms {
		lights, err := c.api.LightsForRoom(ctx, room)
		if err != nil {
			c.logger.Warn("room lookup failed", zap.String("room", room), zap.Error(err))
			continue
		}
		calls = append(calls, c.buildLightCallsForEntities(lights, intent)...)
	}
	result := c.callAllParallel(ctx, calls)
	c.logger.Info("multi-room dispatch complete", zap.Int64("succeeded", result.succeeded), zap.Int64("failed", result.failed))
	return summarizeLightResponse(intent.Action, len(intent.Rooms), intent.ColorDescription, nil), nil
}

func (c *Controller) executeRoomGroup(ctx context.Context, group roomGroup, intent Intent) (string, error) {
	var calls []func(context.Context) error
	for _, member := range group.Members {
		lights, err := c.api.LightsForRoom(ctx, member)
		if err != nil {
			c.logger.Warn("room group member lookup failed", zap.String("room", member), zap.Error(err))
			continue
		}
		calls = append(calls, c.buildLightCallsForEntities(lights, intent)...)
	}
	result := c.callAllParallel(ctx, calls)
	c.logger.Info("room group dispatch complete", zap.String("group", group.DisplayName), zap.Int64("succeeded", result.succeeded), zap.Int64("failed", result.failed))
	return summarizeLightResponse(intent.Action, len(group.Members), intent.ColorDescription, nil), nil
}

func (c *Controller) executeSingleRoom(ctx context.Context, intent Intent) (string, error) {
	var lights []string
	if intent.Room != "" {
		var err error
		lights, err = c.api.LightsForRoom(ctx, intent.Room)
		if err != nil {
			return "", fmt.Errorf("resolve room %q: %w", intent.Room, err)
		}
	}
	if len(lights) == 0 && intent.Room != "" {
		lights = []string{intent.Room}
	}

	calls := c.buildLightCallsForEntities(lights, intent)
	result := c.callAllParallel(ctx, calls)
	c.logger.Info("single-room dispatch complete", zap.Int64("succeeded", result.succeeded), zap.Int64("failed", result.failed))
	return summarizeLightResponse(intent.Action, 1, intent.ColorDescription, nil), nil
}

// buildLightCallsForEntities builds one API call closure per entity,
// distributing colors round-robin for all_individual scope.
func (c *Controller) buildLightCallsForEntities(entities []string, intent Intent) []func(context.Context) error {
	var calls []func(context.Context) error

	switch intent.Action {
	case ActionTurnOn:
		for _, e := range entities {
			e := e
			calls = append(calls, func(ctx context.Context) error {
				return c.api.CallService(ctx, "light", "turn_on", map[string]any{"entity_id": e})
			})
		}
	case ActionTurnOff:
		for _, e := range entities {
			e := e
			calls = append(calls, func(ctx context.Context) error {
				return c.api.CallService(ctx, "light", "turn_off", map[string]any{"entity_id": e})
			})
		}
	case ActionSetColor:
		colors := extractHSColors(intent.Parameters)
		for i, e := range entities {
			e, i := e, i
			data := map[string]any{"entity_id": e, "brightness": 255}
			if len(colors) > 0 {
				hs := colors[i%len(colors)]
				data["hs_color"] = []int{hs.Hue, hs.Saturation}
			}
			calls = append(calls, func(ctx context.Context) error {
				return c.api.CallService(ctx, "light", "turn_on", data)
			})
		}
	default:
		for _, e := range entities {
			e := e
			calls = append(calls, func(ctx context.Context) error {
				return c.api.CallService(ctx, "light", string(intent.Action), map[string]any{"entity_id": e})
			})
		}
	}
	return calls
}

func extractHSColors(params map[string]any) []HSColor {
	raw, ok := params["hs_colors"]
	if !ok {
		return nil
	}
	pairs, ok := raw.([][2]int)
	if !ok {
		return nil
	}
	out := make([]HSColor, len(pairs))
	for i, p := range pairs {
		out[i] = HSColor{Hue: p[0], Saturation: p[1]}
	}
	return out
}

func summarizeLightResponse(action Action, roomCount int, colorDescription string, excludedRooms []string) string {
	excludedInfo := ""
	if len(excludedRooms) > 0 {
		excludedInfo = fmt.Sprintf(", except %s", joinRooms(excludedRooms))
	}
	switch action {
	case ActionTurnOn:
		return fmt.Sprintf("Done! I've turned on lights in %d rooms%s.", roomCount, excludedInfo)
	case ActionTurnOff:
		return fmt.Sprintf("Done! I've turned off lights in %d rooms%s.", roomCount, excludedInfo)
	case ActionSetColor:
		desc := colorDescription
		if desc == "" {
			desc = "the colors"
		}
		return fmt.Sprintf("Done! I've set %s across %d rooms%s.", desc, roomCount, excludedInfo)
	default:
		return fmt.Sprintf("Done! Updated lights in %d rooms%s.", roomCount, excludedInfo)
	}
}

func joinRooms(rooms []string) string {
	out := ""
	for i, r := range rooms {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}

func normalizeRoomToken(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '_' {
			out = append(out, ' ')
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r = r - 'A' + 'a'
		}
		out = append(out, r)
	}
	return string(out)
}

func containsToken(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}
