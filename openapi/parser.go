package openapi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// ErrUnknownSpecVersion is returned by LoadDocument when the document contains
// neither a "swagger" nor an "openapi" key.
var ErrUnknownSpecVersion = fmt.Errorf("openapi: unknown spec version")

// LoadDocument decodes raw spec bytes as JSON or YAML (by sniffing the
// first non-whitespace byte, falling back to YAML which is a JSON
// superset) and detects its version.
func LoadDocument(raw []byte) (*Document, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: decoding spec: %w", err)
	}
	version, err := detectVersion(doc)
	if err != nil {
		return nil, err
	}
	return &Document{Raw: doc, Version: version}, nil
}

func decode(raw []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw2str(raw))
	if strings.HasPrefix(trimmed, "{") {
		var doc map[string]any
		if err := sonic.Unmarshal(raw, &doc); err == nil {
			return doc, nil
		}
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return normalizeYAMLMap(doc), nil
}

func raw2str(b []byte) string { return string(b) }

// normalizeYAMLMap returns v as a map[string]any, or an empty map if v is
// not one. It converts nothing: yaml.v3 already decodes string-keyed
// mappings into map[string]any, the same shape the JSON path produces,
// and nested maps are left exactly as decoded.
func normalizeYAMLMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func detectVersion(doc map[string]any) (string, error) {
	if _, ok := doc["swagger"]; ok {
		return "2.0", nil
	}
	if v, ok := doc["openapi"].(string); ok {
		parts := strings.SplitN(v, ".", 2)
		if len(parts) > 0 && parts[0] != "" {
			return parts[0], nil
		}
	}
	return "", ErrUnknownSpecVersion
}

// Parse builds the normalized Endpoint list for doc.
func Parse(doc *Document) ([]Endpoint, error) {
	res := newResolver(doc.Raw)
	paths, _ := doc.Raw["paths"].(map[string]any)

	var endpoints []Endpoint
	pathNames := sortedKeys(paths)
	for _, path := range pathNames {
		item, ok := paths[path].(map[string]any)
		if !ok {
			continue
		}
		commonParams, _ := item["parameters"].([]any)
		for _, method := range []string{"get", "post", "put", "delete", "patch", "head", "options"} {
			opRaw, ok := item[method].(map[string]any)
			if !ok {
				continue
			}
			ep := Endpoint{Path: path, Method: strings.ToUpper(method)}

			opParams, _ := opRaw["parameters"].([]any)
			allParams := append(append([]any{}, commonParams...), opParams...)

			var bodySchema map[string]any
			var bodyRequired bool
			for _, raw := range allParams {
				p, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				in, _ := p["in"].(string)
				name, _ := p["name"].(string)
				required, _ := p["required"].(bool)
				if in == "body" {
					if s, ok := p["schema"].(map[string]any); ok {
						bodySchema = res.ResolveSchema(s, nil)
						bodyRequired = required
					}
					continue
				}
				schema := paramSchema(p, doc.Version)
				param := Parameter{Name: name, In: in, Required: required, Schema: schema}
				switch in {
				case "path":
					ep.PathParams = append(ep.PathParams, param)
				case "query":
					ep.QueryParams = append(ep.QueryParams, param)
				case "header":
					ep.HeaderParams = append(ep.HeaderParams, param)
				}
			}

			if doc.Version == "2.0" {
				if bodySchema != nil {
					ep.RequestBody = requestBodyFromSchema(bodySchema, bodyRequired)
				}
			} else {
				if rb := extractRequestBodyV3(opRaw, res); rb != nil {
					ep.RequestBody = rb
				}
			}

			ep.Responses = extractResponses(opRaw, res, doc.Version)
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints, nil
}

func paramSchema(p map[string]any, version string) map[string]any {
	if s, ok := p["schema"].(map[string]any); ok {
		return s
	}
	// v2 non-body params carry type/format directly on the parameter.
	schema := map[string]any{}
	for _, k := range []string{"type", "format", "pattern", "minimum", "maximum", "example", "enum", "items"} {
		if v, ok := p[k]; ok {
			schema[k] = v
		}
	}
	return schema
}

func requestBodyFromSchema(schema map[string]any, bodyParamRequired bool) *RequestBody {
	props, _ := schema["properties"].(map[string]any)
	required := stringSlice(schema["required"])
	if len(required) == 0 && bodyParamRequired {
		// v2 body parameters are all-or-nothing: if the body parameter
		// itself is required but the schema names no required
		// properties, treat every declared property as required.
		for name := range props {
			required = append(required, name)
		}
		sort.Strings(required)
	}
	return &RequestBody{Properties: props, Required: required}
}

func extractRequestBodyV3(opRaw map[string]any, res *resolver) *RequestBody {
	rb, ok := opRaw["requestBody"].(map[string]any)
	if !ok {
		return nil
	}
	content, ok := rb["content"].(map[string]any)
	if !ok {
		return nil
	}
	media, ok := content["application/json"].(map[string]any)
	if !ok {
		return nil
	}
	schema, _ := media["schema"].(map[string]any)
	resolved := res.ResolveSchema(schema, nil)
	required := stringSlice(rb["required"])
	props, _ := resolved["properties"].(map[string]any)
	reqProps := stringSlice(resolved["required"])
	if len(reqProps) > 0 {
		required = reqProps
	}
	return &RequestBody{Properties: props, Required: required}
}

func extractResponses(opRaw map[string]any, res *resolver, version string) []ResponseSchema {
	responses, ok := opRaw["responses"].(map[string]any)
	if !ok {
		return nil
	}
	var out []ResponseSchema
	for _, status := range sortedKeys(responses) {
		respRaw, ok := responses[status].(map[string]any)
		if !ok {
			continue
		}
		rs := ResponseSchema{Status: status}
		if version == "2.0" {
			if schema, ok := respRaw["schema"].(map[string]any); ok {
				resolved := res.ResolveSchema(schema, nil)
				rs.HasContent = true
				rs.TopLevelFields = topLevelFields(resolved)
				rs.ContentTypes = []string{"application/json"}
			}
		} else {
			content, _ := respRaw["content"].(map[string]any)
			for ctype, mediaRaw := range content {
				media, ok := mediaRaw.(map[string]any)
				if !ok {
					continue
				}
				rs.HasContent = true
				rs.ContentTypes = append(rs.ContentTypes, ctype)
				if schema, ok := media["schema"].(map[string]any); ok && ctype == "application/json" {
					resolved := res.ResolveSchema(schema, nil)
					rs.TopLevelFields = topLevelFields(resolved)
				}
			}
			sort.Strings(rs.ContentTypes)
		}
		out = append(out, rs)
	}
	return out
}

func topLevelFields(schema map[string]any) []string {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	return sortedKeys(props)
}

func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// statusInt converts a declared status string to a number; unparsable
// statuses (e.g. "default") return 0.
func statusInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
