package smarthome

import (
	"regexp"
	"strconv"
	"strings"
)

// typoCorrections fixes the handful of common ASR/typo misspellings the
// source corrects before fast-path matching, grounded on extract_intent's
// typo_corrections table.
var typoCorrections = map[string]string{
	"lihgts": "lights", "lighst": "lights", "ligths": "lights", "litghs": "lights",
	"lghts": "lights", "lihgt": "light", "ligth": "light", "ligt": "light",
	"lite": "light", "lites": "lights",
	"offf": "off", "onn": "on", "oon": "on", "oof": "off",
	"turn of ": "turn off ", "turn fo ": "turn off ",
	"trun ": "turn ", "tunr ": "turn ", "tur ": "turn ",
	"swtich": "switch", "swich": "switch", "swtch": "switch",
	"theromstat": "thermostat", "thermstat": "thermostat", "thermastat": "thermostat",
	"temprature": "temperature", "tempature": "temperature", "temperture": "temperature",
	"dorr": "door", "dor": "door", "dooor": "door",
	"locl": "lock", "lokc": "lock",
}

func applyTypoCorrections(queryLower string) string {
	for typo, correction := range typoCorrections {
		queryLower = strings.ReplaceAll(queryLower, typo, correction)
	}
	return queryLower
}

var (
	lockCommandPatterns = []string{
		"lock the front door", "lock front door", "lock the door",
		"unlock the front door", "unlock front door", "unlock the door",
		"lock the back door", "lock back door",
		"unlock the back door", "unlock back door",
		"lock all doors", "lock the doors", "unlock all doors", "unlock the doors",
		"lock up", "lock everything", "lock it up",
		"is the door locked", "is the front door locked", "is the back door locked",
		"is the door unlocked",
		"check the lock", "check the door lock", "door status",
		"are the doors locked", "are all doors locked", "are the doors unlocked",
		"did i lock", "have i locked",
	}

	wholeHouseLightPatterns = []struct {
		Pattern string
		Action  Action
	}{
		{"all lights on", ActionTurnOn}, {"all the lights on", ActionTurnOn},
		{"turn on all lights", ActionTurnOn}, {"turn on all the lights", ActionTurnOn},
		{"all lights off", ActionTurnOff}, {"all the lights off", ActionTurnOff},
		{"turn off all lights", ActionTurnOff}, {"turn off all the lights", ActionTurnOff},
		{"turn everything off", ActionTurnOff}, {"turn everything on", ActionTurnOn},
		{"everything off", ActionTurnOff},
		{"lights off everywhere", ActionTurnOff}, {"lights on everywhere", ActionTurnOn},
	}

	bedWarmingPatterns = []string{
		"warm up the bed", "warm the bed", "preheat the bed", "heat the bed",
		"warm up my bed", "warm my bed", "warm the mattress", "heat the mattress",
		"mattress pad", "warm my side", "warm the left", "warm the right",
		"heat my side", "bed warmer", "turn on the bed", "turn off the bed",
		"bed on", "bed off", "set the bed to", "bed to level", "bed at level",
	}

	motionControlPatterns = []struct {
		Phrase string
		Enable bool
	}{
		{"leave the lights on", true}, {"keep the lights on", true},
		{"leave lights on", true}, {"keep lights on", true},
		{"leave the lights off", false}, {"keep the lights off", false},
		{"leave lights off", false}, {"keep lights off", false},
		{"disable motion", false}, {"turn off motion", false}, {"motion off", false},
		{"enable motion", true}, {"turn on motion", true}, {"motion on", true}, {"resume motion", true},
	}

	mediaOnPatterns  = []string{"turn on the tv", "turn on tv", "media player on", "turn on the speaker", "turn on music"}
	mediaOffPatterns = []string{"turn off the tv", "turn off tv", "media player off", "turn off the speaker", "stop music", "pause music"}

	fanOnPatterns  = []string{"turn on the fan", "fan on", "turn the fan on"}
	fanOffPatterns = []string{"turn off the fan", "fan off", "turn the fan off"}

	garageOpenPatterns  = []string{"open the garage", "open garage door", "open the cover", "open the blinds", "raise the blinds"}
	garageClosePatterns = []string{"close the garage", "close garage door", "close the cover", "close the blinds", "lower the blinds"}

	occupancyPatterns     = []string{"anyone home", "is anyone home", "who's home", "is anybody there", "occupancy status"}
	windowSensorPatterns  = []string{"is the window open", "are the windows open", "window status", "window sensor"}

	namedScenes = map[string]string{
		"movie mode":    "scene.movie_mode",
		"movie time":    "scene.movie_mode",
		"good morning":  "scene.good_morning",
		"good night":    "scene.good_night",
		"goodnight":     "scene.good_night",
		"bedtime":       "scene.good_night",
		"romantic mode": "scene.romantic",
		"party mode":    "scene.party",
	}

	pctPattern      = regexp.MustCompile(`(\d+)\s*(?:%|percent)`)
	levelPattern    = regexp.MustCompile(`(?:to|at)\s+(\d+)(?:\s|$|,)`)
	thermostatWords = []string{"thermostat", "temperature", "degrees", "the heat", "the ac", "crank"}
)

// matchFastPath runs the full prioritised rule engine. Returns (intent,
// true) on a match, or (_, false) to fall through to the LLM path.
// Ordering matches the source's family ordering exactly where families
// could otherwise collide (scenes before generic light commands, lock
// before generic turn-on/off, bed warmer before thermostat, etc).
func matchFastPath(query string, deviceRoom string) (Intent, bool) {
	queryLower := applyTypoCorrections(strings.ToLower(query))

	if intent, ok := matchScene(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchLock(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchBedWarmer(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchMotionControl(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchMedia(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchFan(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchCover(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchOccupancy(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchWindowSensor(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchThermostat(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchWholeHouseExclusion(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchWholeHouseLights(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchMultiRoom(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchSportsPalette(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchAmbientPalette(queryLower); ok {
		return intent, true
	}
	if intent, ok := matchBrightness(queryLower, deviceRoom); ok {
		return intent, true
	}
	if intent, ok := matchBasicColorCommand(queryLower, deviceRoom); ok {
		return intent, true
	}
	if intent, ok := matchGenericLight(queryLower, deviceRoom); ok {
		return intent, true
	}
	return Intent{}, false
}

func matchScene(q string) (Intent, bool) {
	for phrase, entity := range namedScenes {
		if strings.Contains(q, phrase) {
			return Intent{
				DeviceType:  DeviceScene,
				Action:      ActionActivate,
				TargetScope: ScopeSingle,
				Parameters:  map[string]any{"entity_id": entity},
			}, true
		}
	}
	return Intent{}, false
}

func matchLock(q string) (Intent, bool) {
	matched := false
	for _, p := range lockCommandPatterns {
		if strings.Contains(q, p) {
			matched = true
			break
		}
	}
	if !matched {
		return Intent{}, false
	}

	var action Action
	switch {
	case strings.Contains(q, "is") && (strings.Contains(q, "locked") || strings.Contains(q, "unlocked") || strings.Contains(q, "status") || strings.Contains(q, "check")):
		action = ActionGetStatus
	case strings.Contains(q, "are") && (strings.Contains(q, "locked") || strings.Contains(q, "unlocked")):
		action = ActionGetStatus
	case strings.Contains(q, "did i lock") || strings.Contains(q, "have i locked"):
		action = ActionGetStatus
	case strings.Contains(q, "unlock"):
		action = ActionUnlock
	default:
		action = ActionLock
	}

	var room string
	switch {
	case strings.Contains(q, "back"):
		room = "back_door"
	case strings.Contains(q, "front"):
		room = "front_door"
	case strings.Contains(q, "all") || strings.Contains(q, "the doors"):
		room = "all_doors"
	default:
		room = "front_door"
	}

	return Intent{DeviceType: DeviceLock, Room: room, Action: action, TargetScope: ScopeGroup}, true
}

func matchBedWarmer(q string) (Intent, bool) {
	matched := false
	for _, p := range bedWarmingPatterns {
		if strings.Contains(q, p) {
			matched = true
			break
		}
	}
	hasBedKeyword := regexp.MustCompile(`\bbed\b`).MatchString(q) && !strings.Contains(q, "bedroom")
	hasMattress := strings.Contains(q, "mattress")
	hasSide := strings.Contains(q, "my side") || strings.Contains(q, "left side") || strings.Contains(q, "right side")
	if matched && !(hasBedKeyword || hasMattress || hasSide) {
		matched = false
	}
	if !matched {
		return Intent{}, false
	}

	if strings.Contains(q, "?") || strings.Contains(q, "is the bed") || strings.Contains(q, "bed status") || strings.Contains(q, "what level") {
		return Intent{DeviceType: DeviceBedWarmer, Room: "master_bedroom", Action: ActionGetStatus, TargetScope: ScopeGroup}, true
	}

	action := ActionWarmBed
	switch {
	case strings.Contains(q, "turn off") || strings.Contains(q, "stop"):
		action = ActionTurnOff
	case strings.Contains(q, "warmer") || strings.Contains(q, "hotter") || strings.Contains(q, "turn up"):
		action = ActionIncrease
	case strings.Contains(q, "cooler") || strings.Contains(q, "turn down"):
		action = ActionDecrease
	}

	side := "both"
	level := 1
	if m := pctPattern.FindStringSubmatch(q); m != nil {
		pct, _ := strconv.Atoi(m[1])
		level = percentToLevel(pct)
	}
	switch {
	case strings.Contains(q, "left") || strings.Contains(q, "my side"):
		side = "left"
	case strings.Contains(q, "right") || strings.Contains(q, "other side"):
		side = "right"
	}

	return Intent{
		DeviceType:  DeviceBedWarmer,
		Room:        "master_bedroom",
		Action:      action,
		TargetScope: ScopeGroup,
		Parameters:  map[string]any{"side": side, "level": level},
	}, true
}

func percentToLevel(pct int) int {
	level := (pct + 5) / 10
	if level < 1 {
		level = 1
	}
	if level > 10 {
		level = 10
	}
	return level
}

func matchMotionControl(q string) (Intent, bool) {
	for _, p := range motionControlPatterns {
		if strings.Contains(q, p.Phrase) {
			return Intent{
				DeviceType:  DeviceMotion,
				Action:      ActionTurnOn,
				TargetScope: ScopeGroup,
				Parameters:  map[string]any{"enable": p.Enable},
			}, true
		}
	}
	return Intent{}, false
}

func matchMedia(q string) (Intent, bool) {
	if containsAnyHelper(q, mediaOnPatterns) {
		return Intent{DeviceType: DeviceMediaPlayer, Action: ActionTurnOn, TargetScope: ScopeGroup}, true
	}
	if containsAnyHelper(q, mediaOffPatterns) {
		return Intent{DeviceType: DeviceMediaPlayer, Action: ActionTurnOff, TargetScope: ScopeGroup}, true
	}
	return Intent{}, false
}

func matchFan(q string) (Intent, bool) {
	if containsAnyHelper(q, fanOnPatterns) {
		room, _ := extractRoom(q)
		return Intent{DeviceType: DeviceFan, Room: room, Action: ActionTurnOn, TargetScope: ScopeGroup}, true
	}
	if containsAnyHelper(q, fanOffPatterns) {
		room, _ := extractRoom(q)
		return Intent{DeviceType: DeviceFan, Room: room, Action: ActionTurnOff, TargetScope: ScopeGroup}, true
	}
	return Intent{}, false
}

func matchCover(q string) (Intent, bool) {
	if containsAnyHelper(q, garageOpenPatterns) {
		return Intent{DeviceType: DeviceCover, Action: ActionOpen, TargetScope: ScopeGroup}, true
	}
	if containsAnyHelper(q, garageClosePatterns) {
		return Intent{DeviceType: DeviceCover, Action: ActionClose, TargetScope: ScopeGroup}, true
	}
	return Intent{}, false
}

func matchOccupancy(q string) (Intent, bool) {
	if containsAnyHelper(q, occupancyPatterns) {
		return Intent{DeviceType: DeviceSensor, Action: ActionGetStatus, TargetScope: ScopeGroup, Parameters: map[string]any{"sensor_type": "occupancy"}}, true
	}
	return Intent{}, false
}

func matchWindowSensor(q string) (Intent, bool) {
	if containsAnyHelper(q, windowSensorPatterns) {
		return Intent{DeviceType: DeviceSensor, Action: ActionGetStatus, TargetScope: ScopeGroup, Parameters: map[string]any{"sensor_type": "window"}}, true
	}
	return Intent{}, false
}

func matchThermostat(q string) (Intent, bool) {
	if !containsAnyHelper(q, thermostatWords) {
		return Intent{}, false
	}
	action := ActionGetStatus
	switch {
	case strings.Contains(q, "turn up") || strings.Contains(q, "warmer") || strings.Contains(q, "increase"):
		action = ActionIncrease
	case strings.Contains(q, "turn down") || strings.Contains(q, "cooler") || strings.Contains(q, "decrease"):
		action = ActionDecrease
	}
	params := map[string]any{}
	if m := levelPattern.FindStringSubmatch(q); m != nil {
		temp, _ := strconv.Atoi(m[1])
		params["temperature"] = temp
		action = ActionSetLevel
	}
	return Intent{DeviceType: DeviceClimate, Action: action, TargetScope: ScopeSingle, Parameters: params}, true
}

var exclusionKeywordPattern = regexp.MustCompile(`(everything|all\s+(the\s+)?lights?)\s+but\s+`)
var exclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`except\s+(?:the\s+)?(\w+\s*\w*)`),
	regexp.MustCompile(`but not\s+(?:the\s+)?(\w+\s*\w*)`),
	regexp.MustCompile(`not the\s+(\w+\s*\w*)`),
	regexp.MustCompile(`excluding\s+(?:the\s+)?(\w+\s*\w*)`),
	regexp.MustCompile(`(?:everything|all\s+(?:the\s+)?lights?)\s+but\s+(?:the\s+)?(\w+\s*\w*)`),
}

func matchWholeHouseExclusion(q string) (Intent, bool) {
	hasExclusion := strings.Contains(q, "except") || strings.Contains(q, "but not") ||
		strings.Contains(q, "not the") || strings.Contains(q, "excluding") ||
		exclusionKeywordPattern.MatchString(q)
	hasAll := strings.Contains(q, "all") || strings.Contains(q, "everything") || strings.Contains(q, "everywhere")
	if !hasExclusion || !hasAll {
		return Intent{}, false
	}

	var excluded []string
	for _, p := range exclusionPatterns {
		m := p.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[len(m)-1])
		for _, room := range roomNames {
			if strings.Contains(candidate, room) || strings.Contains(room, candidate) {
				excluded = append(excluded, room)
				break
			}
		}
	}
	if len(excluded) == 0 {
		return Intent{}, false
	}

	action := ActionTurnOff
	if strings.Contains(q, "turn on") || strings.Contains(q, "lights on") {
		action = ActionTurnOn
	}

	return Intent{
		DeviceType:    DeviceLight,
		Room:          RoomWholeHouse,
		ExcludedRooms: excluded,
		Action:        action,
		TargetScope:   ScopeGroup,
	}, true
}

func matchWholeHouseLights(q string) (Intent, bool) {
	for _, p := range wholeHouseLightPatterns {
		if strings.Contains(q, p.Pattern) {
			return Intent{DeviceType: DeviceLight, Room: RoomWholeHouse, Action: p.Action, TargetScope: ScopeGroup}, true
		}
	}
	return Intent{}, false
}

var multiRoomConnector = regexp.MustCompile(`\band\b`)

func matchMultiRoom(q string) (Intent, bool) {
	if !multiRoomConnector.MatchString(q) {
		return Intent{}, false
	}
	var matches []string
	for _, room := range roomNames {
		if strings.Contains(q, room) {
			matches = append(matches, room)
		}
	}
	if len(matches) < 2 {
		return Intent{}, false
	}
	action := ActionTurnOff
	if strings.Contains(q, "turn on") || strings.Contains(q, "lights on") {
		action = ActionTurnOn
	}
	return Intent{
		DeviceType:  DeviceLight,
		Room:        RoomMultiRoom,
		Rooms:       matches,
		Action:      action,
		TargetScope: ScopeGroup,
	}, true
}

func matchSportsPalette(q string) (Intent, bool) {
	_, palette, ok := matchSportsTeam(q)
	if !ok {
		return Intent{}, false
	}
	room, found := extractRoom(q)
	if !found {
		room = RoomWholeHouse
	}
	return Intent{
		DeviceType:       DeviceLight,
		Room:             room,
		Action:           ActionSetColor,
		TargetScope:      ScopeAllIndividual,
		Parameters:       map[string]any{"hs_colors": hsColorsToParam(palette.Colors)},
		ColorDescription: palette.Description,
	}, true
}

func matchAmbientPalette(q string) (Intent, bool) {
	_, palette, ok := matchAmbientColor(q)
	if !ok {
		return Intent{}, false
	}
	room, found := extractRoom(q)
	if !found || strings.Contains(q, "all") {
		room = RoomWholeHouse
	}
	return Intent{
		DeviceType:       DeviceLight,
		Room:             room,
		Action:           ActionSetColor,
		TargetScope:      ScopeAllIndividual,
		Parameters:       map[string]any{"hs_colors": hsColorsToParam(palette.Colors)},
		ColorDescription: palette.Description,
	}, true
}

var (
	relativeBrighter = []string{"brighter", "more light", "turn up the lights", "brighten"}
	relativeDimmer   = []string{"dimmer", "dim the lights", "turn down the lights", "darker"}
	implicitDark     = []string{"too dark", "can't see", "hard to see"}
	implicitBright   = []string{"too bright", "blinding", "hurts my eyes"}
)

func matchBrightness(q string, deviceRoom string) (Intent, bool) {
	room, found := extractRoom(q)
	if !found && deviceRoom != "" {
		room = deviceRoom
	}

	if m := pctPattern.FindStringSubmatch(q); m != nil && (strings.Contains(q, "bright") || strings.Contains(q, "dim")) {
		pct, _ := strconv.Atoi(m[1])
		return Intent{
			DeviceType:  DeviceLight,
			Room:        room,
			Action:      ActionSetLevel,
			TargetScope: ScopeGroup,
			Parameters:  map[string]any{"brightness_pct": pct},
		}, true
	}

	switch {
	case containsAnyHelper(q, implicitDark) || containsAnyHelper(q, relativeBrighter):
		return Intent{DeviceType: DeviceLight, Room: room, Action: ActionIncrease, TargetScope: ScopeGroup, Parameters: map[string]any{"step_pct": 20}}, true
	case containsAnyHelper(q, implicitBright) || containsAnyHelper(q, relativeDimmer):
		return Intent{DeviceType: DeviceLight, Room: room, Action: ActionDecrease, TargetScope: ScopeGroup, Parameters: map[string]any{"step_pct": 20}}, true
	}
	return Intent{}, false
}

func matchBasicColorCommand(q string, deviceRoom string) (Intent, bool) {
	_, hs, ok := matchBasicColor(q)
	if !ok {
		return Intent{}, false
	}
	if containsAnyHelper(q, thermostatWords) {
		return Intent{}, false
	}
	room, found := extractRoom(q)
	if !found && deviceRoom != "" {
		room = deviceRoom
	}
	return Intent{
		DeviceType:  DeviceLight,
		Room:        room,
		Action:      ActionSetColor,
		TargetScope: ScopeAllIndividual,
		Parameters:  map[string]any{"hs_colors": hsColorsToParam([]HSColor{hs, hs, hs})},
	}, true
}

func matchGenericLight(q string, deviceRoom string) (Intent, bool) {
	isTurnOn := strings.Contains(q, "turn on") || strings.Contains(q, "switch on") || strings.Contains(q, "lights on")
	isTurnOff := strings.Contains(q, "turn off") || strings.Contains(q, "switch off") || strings.Contains(q, "lights off") ||
		strings.Contains(q, "kill the lights") || strings.Contains(q, "cut the lights")
	if !isTurnOn && !isTurnOff {
		return Intent{}, false
	}

	room, found := extractRoom(q)
	if !found && deviceRoom != "" && deviceRoom != "unknown" && deviceRoom != "guest" {
		room = deviceRoom
	}

	action := ActionTurnOff
	if isTurnOn {
		action = ActionTurnOn
	}
	return Intent{DeviceType: DeviceLight, Room: room, Action: action, TargetScope: ScopeGroup}, true
}

func containsAnyHelper(q string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(q, c) {
			return true
		}
	}
	return false
}
