package data

import (
	"encoding/json"
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

// ParseJSONOrYAML unmarshals data into target like json.Unmarshal, but also accepts
// YAML input, converting it to JSON first so that the target's json struct tags apply
// either way. JSON is tried first since every JSON document is also valid YAML.
func ParseJSONOrYAML(data []byte, target interface{}) error {
	if json.Unmarshal(data, target) == nil {
		return nil
	}
	var tree interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	tree, err := yamlTreeToJSONTree(tree)
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}

// yamlTreeToJSONTree rewrites the maps the YAML parser produces into the
// map[string]interface{} form the JSON encoder requires, rejecting any map whose key
// is not a string.
func yamlTreeToJSONTree(node interface{}) (interface{}, error) {
	switch node := node.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(node))
		for _, item := range node {
			converted, err := yamlTreeToJSONTree(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(node))
		for key, value := range node {
			converted, err := yamlTreeToJSONTree(value)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(node))
		for key, value := range node {
			stringKey, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("YAML data contained a map key of type %T; only string keys are allowed", key)
			}
			converted, err := yamlTreeToJSONTree(value)
			if err != nil {
				return nil, err
			}
			out[stringKey] = converted
		}
		return out, nil
	default:
		return node, nil
	}
}
