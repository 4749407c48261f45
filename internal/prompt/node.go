package prompt

// InputTypes are the upstream output types a prompt variable accepts.
var InputTypes = []string{"Document", "BaseOutputParser"}

// Request is a prompt validation request. FrontendNode is the editor's node
// descriptor and is passed through with its template fields updated.
type Request struct {
	Name         string         `json:"name"`
	Template     string         `json:"template"`
	FrontendNode map[string]any `json:"frontend_node,omitempty"`
}

// Response carries the extracted variables and the updated node.
type Response struct {
	InputVariables []string       `json:"input_variables"`
	FrontendNode   map[string]any `json:"frontend_node,omitempty"`
}

// Validate extracts the template's variables and, when a node is supplied,
// adds a template field per variable and drops the fields of variables that
// disappeared since the last call. The node's custom_fields[Name] entry
// records which fields belong to the prompt.
func Validate(req Request) Response {
	vars := InputVariables(req.Template)
	resp := Response{InputVariables: vars}
	if req.FrontendNode == nil {
		return resp
	}

	node := req.FrontendNode
	template := childMap(node, "template")
	custom := childMap(node, "custom_fields")
	previous := stringList(custom[req.Name])

	current := make(map[string]bool, len(vars))
	for _, v := range vars {
		current[v] = true
	}

	owned := make([]string, 0, len(vars))
	for _, v := range previous {
		if current[v] {
			owned = append(owned, v)
			continue
		}
		delete(template, v)
	}

	for _, v := range vars {
		field := variableField(v)
		if existing, ok := template[v].(map[string]any); ok {
			if value, ok := existing["value"]; ok {
				field["value"] = value
			}
		}
		template[v] = field
		if !contains(owned, v) {
			owned = append(owned, v)
		}
	}
	custom[req.Name] = owned

	if iv, ok := template["input_variables"].(map[string]any); ok {
		iv["value"] = vars
	}

	resp.FrontendNode = node
	return resp
}

func variableField(name string) map[string]any {
	return map[string]any{
		"name":         name,
		"display_name": name,
		"type":         "str",
		"required":     false,
		"placeholder":  "",
		"list":         false,
		"show":         true,
		"multiline":    true,
		"password":     false,
		"advanced":     false,
		"dynamic":      false,
		"info":         "",
		"value":        "",
		"fileTypes":    []string{},
		"input_types":  append([]string(nil), InputTypes...),
	}
}

func childMap(parent map[string]any, key string) map[string]any {
	if m, ok := parent[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	parent[key] = m
	return m
}

// stringList converts a decoded JSON array to strings, skipping non-strings.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
