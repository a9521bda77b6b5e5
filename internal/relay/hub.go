package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that match nothing
var ErrNotFound = errors.New("not found")

// Info returns hub metadata (architecture, build, model, serial, ...). The
// field set varies across firmware versions, so the result stays free-form.
func (s *Session) Info(ctx context.Context) (map[string]any, error) {
	result, err := s.Send(ctx, methodInfoGet, nil)
	if err != nil {
		return nil, err
	}
	var info map[string]any
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, NewConnectionError("undecodable hub.info.get result", err)
	}
	return info, nil
}

// Devices returns the devices paired with the hub
func (s *Session) Devices(ctx context.Context) ([]Device, error) {
	result, err := s.Send(ctx, methodDevicesList, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Devices []Device `json:"devices"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, NewConnectionError("undecodable hub.devices.list result", err)
	}
	return resp.Devices, nil
}

// Device returns the first paired device with the given name, or ErrNotFound
func (s *Session) Device(ctx context.Context, name string) (*Device, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device %q: %w", name, ErrNotFound)
}

// Items returns the hub's items, optionally limited to the given devices
func (s *Session) Items(ctx context.Context, deviceIDs ...string) ([]Item, error) {
	params := map[string]any{}
	if len(deviceIDs) > 0 {
		params["deviceIds"] = deviceIDs
	}
	result, err := s.Send(ctx, methodItemsList, params)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, NewConnectionError("undecodable hub.items.list result", err)
	}
	return resp.Items, nil
}

// Item returns the items with the given name, optionally limited to the
// given devices. Empty when nothing matches.
func (s *Session) Item(ctx context.Context, name string, deviceIDs ...string) ([]Item, error) {
	items, err := s.Items(ctx, deviceIDs...)
	if err != nil {
		return nil, err
	}
	matched := items[:0]
	for _, item := range items {
		if item.Name == name {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// SetItemValue sets value on one or more items. A single id is a direct
// set; several ids become one multicast set carrying the same value.
func (s *Session) SetItemValue(ctx context.Context, value any, itemIDs ...string) error {
	var params map[string]any
	switch len(itemIDs) {
	case 0:
		return fmt.Errorf("no item ids given")
	case 1:
		params = map[string]any{"_id": itemIDs[0], "value": value}
	default:
		params = map[string]any{"ids": itemIDs, "value": value}
	}
	_, err := s.Send(ctx, methodItemValueSet, params)
	return err
}
