package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Tweaks never override these template fields.
var protectedFields = map[string]bool{
	"code": true,
}

// ApplyTweaks overrides template field values in a flow graph. Tweaks are
// keyed by node id or node display name, then by field name. Fields the node
// template does not declare are ignored. The returned graph is canonical JSON.
func ApplyTweaks(data json.RawMessage, tweaks map[string]map[string]any) (json.RawMessage, error) {
	graph, err := decodeGraph(data)
	if err != nil {
		return nil, err
	}

	if len(tweaks) > 0 {
		nodes, _ := graph["nodes"].([]any)
		for _, raw := range nodes {
			node, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			tweak := nodeTweak(node, tweaks)
			if tweak == nil {
				continue
			}
			applyNodeTweak(node, tweak)
		}
	}

	out, err := json.Marshal(graph)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	return out, nil
}

// SessionID derives a session id from a canonical graph.
func SessionID(graph json.RawMessage) string {
	sum := sha256.Sum256(graph)
	return hex.EncodeToString(sum[:])
}

func decodeGraph(data json.RawMessage) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var graph map[string]any
	if err := dec.Decode(&graph); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	if graph == nil {
		graph = map[string]any{}
	}
	return graph, nil
}

// nodeTweak finds the tweak for node, preferring its id over its display name.
func nodeTweak(node map[string]any, tweaks map[string]map[string]any) map[string]any {
	if id, ok := node["id"].(string); ok {
		if t, ok := tweaks[id]; ok {
			return t
		}
	}
	if name := displayName(node); name != "" {
		if t, ok := tweaks[name]; ok {
			return t
		}
	}
	return nil
}

func displayName(node map[string]any) string {
	inner := innerNode(node)
	if inner == nil {
		return ""
	}
	name, _ := inner["display_name"].(string)
	return name
}

func innerNode(node map[string]any) map[string]any {
	data, ok := node["data"].(map[string]any)
	if !ok {
		return nil
	}
	inner, _ := data["node"].(map[string]any)
	return inner
}

func applyNodeTweak(node, tweak map[string]any) {
	inner := innerNode(node)
	if inner == nil {
		return
	}
	template, ok := inner["template"].(map[string]any)
	if !ok {
		return
	}
	for field, value := range tweak {
		if protectedFields[field] {
			continue
		}
		spec, ok := template[field].(map[string]any)
		if !ok {
			continue
		}
		if t, _ := spec["type"].(string); t == "file" {
			spec["file_path"] = value
			continue
		}
		spec["value"] = value
	}
}
