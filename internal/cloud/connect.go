package cloud

import (
	"context"
	"encoding/json"
	"fmt"
)

// Connector builds clients for a target, detecting the protocol version
// when the caller does not know it.
type Connector struct {
	Options Options
}

// Build returns a client of the requested version. VersionUnknown probes
// the target's /info document first.
func (c Connector) Build(ctx context.Context, target, token string, v Version) (Client, error) {
	if v == VersionUnknown {
		detected, err := Detect(ctx, target, c.Options)
		if err != nil {
			return nil, err
		}
		v = detected
	}

	switch v {
	case Version1:
		return NewV1(target, token, c.Options), nil
	case Version2:
		return NewV2(target, token, c.Options), nil
	default:
		return nil, fmt.Errorf("unsupported API version %d", v)
	}
}

// Detect reads the target's /info document. A version of 2 means the scoped
// protocol; anything else is treated as v1.
func Detect(ctx context.Context, target string, opts Options) (Version, error) {
	var raw struct {
		Version json.RawMessage `json:"version"`
	}
	if err := newConn(target, "", opts).get(ctx, "/info", &raw); err != nil {
		return VersionUnknown, fmt.Errorf("failed to detect API version: %w", err)
	}

	var n json.Number
	if err := json.Unmarshal(raw.Version, &n); err == nil && n.String() == "2" {
		return Version2, nil
	}
	return Version1, nil
}
