package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ariavoice/control-plane/smarthome"
)

// HomeAssistantClient is the gateway's concrete home-automation backend: a
// thin REST client over Home Assistant's /api/services and /api/states
// endpoints. It implements both smarthome.HomeAPI (service calls, light
// group/room resolution) and StateAPI (satellite polling fallback for
// RoomDetector when LiveStateAPI's websocket subscription isn't running).
//
// Grounded on search/providers.go's httpProvider skeleton for the
// build-request/do/parse-with-gjson shape.
type HomeAssistantClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewHomeAssistantClient builds a client against a Home Assistant instance.
// baseURL is the REST root, e.g. "http://homeassistant.local:8123".
func NewHomeAssistantClient(baseURL, token string, client *http.Client, logger *zap.Logger) *HomeAssistantClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HomeAssistantClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  client,
		logger:  logger.With(zap.String("component", "gateway_home_assistant")),
	}
}

var _ smarthome.HomeAPI = (*HomeAssistantClient)(nil)
var _ StateAPI = (*HomeAssistantClient)(nil)

func (c *HomeAssistantClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

// CallService implements smarthome.HomeAPI.
func (c *HomeAssistantClient) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("home assistant: encode service data: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/services/%s/%s", c.baseURL, domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("home assistant: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("home assistant: call %s.%s: %w", domain, service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("home assistant: %s.%s returned status %d", domain, service, resp.StatusCode)
	}
	return nil
}

// LightGroups implements smarthome.HomeAPI by scanning /api/states for
// light_group entities.
func (c *HomeAssistantClient) LightGroups(ctx context.Context) ([]smarthome.LightGroup, error) {
	body, err := c.getStates(ctx)
	if err != nil {
		return nil, err
	}
	var groups []smarthome.LightGroup
	gjson.ParseBytes(body).ForEach(func(_, entity gjson.Result) bool {
		entityID := entity.Get("entity_id").String()
		if !strings.HasPrefix(entityID, "light.") {
			return true
		}
		members := entity.Get("attributes.entity_id")
		if !members.Exists() {
			return true
		}
		var memberIDs []string
		members.ForEach(func(_, m gjson.Result) bool {
			memberIDs = append(memberIDs, m.String())
			return true
		})
		if len(memberIDs) == 0 {
			return true
		}
		groups = append(groups, smarthome.LightGroup{
			FriendlyName: entity.Get("attributes.friendly_name").String(),
			EntityID:     entityID,
			Members:      memberIDs,
		})
		return true
	})
	return groups, nil
}

// LightsForRoom implements smarthome.HomeAPI by matching light entities
// whose entity_id contains the room name (case-insensitive); area
// assignments are not consulted.
func (c *HomeAssistantClient) LightsForRoom(ctx context.Context, room string) ([]string, error) {
	body, err := c.getStates(ctx)
	if err != nil {
		return nil, err
	}
	room = strings.ToLower(room)
	var entities []string
	gjson.ParseBytes(body).ForEach(func(_, entity gjson.Result) bool {
		entityID := entity.Get("entity_id").String()
		if !strings.HasPrefix(entityID, "light.") {
			return true
		}
		if strings.Contains(strings.ToLower(entityID), room) {
			entities = append(entities, entityID)
		}
		return true
	})
	return entities, nil
}

// AssistSatellites implements StateAPI as a polling fallback to
// LiveStateAPI's websocket subscription.
func (c *HomeAssistantClient) AssistSatellites(ctx context.Context) ([]SatelliteState, error) {
	body, err := c.getStates(ctx)
	if err != nil {
		return nil, err
	}
	var satellites []SatelliteState
	gjson.ParseBytes(body).ForEach(func(_, entity gjson.Result) bool {
		entityID := entity.Get("entity_id").String()
		if !strings.HasPrefix(entityID, "assist_satellite.") {
			return true
		}
		lastChanged, _ := time.Parse(time.RFC3339, entity.Get("last_changed").String())
		satellites = append(satellites, SatelliteState{
			EntityID:     entityID,
			State:        entity.Get("state").String(),
			FriendlyName: entity.Get("attributes.friendly_name").String(),
			LastChanged:  lastChanged,
		})
		return true
	})
	return satellites, nil
}

func (c *HomeAssistantClient) getStates(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/states", nil)
	if err != nil {
		return nil, fmt.Errorf("home assistant: build states request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("home assistant: fetch states: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("home assistant: read states body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("home assistant: states returned status %d", resp.StatusCode)
	}
	return body, nil
}
