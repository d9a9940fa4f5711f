package mcpserver

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/quantbrew/algochat/internal/protocol"
)

// goTypeToSchemaType maps Go kinds to JSON schema types.
func goTypeToSchemaType(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}

// SchemaFromStruct derives a tool input schema from struct tags. Field names
// come from the json tag, descriptions from the description tag, allowed
// values from the enum tag. Pointer fields are optional; everything else is
// required.
func SchemaFromStruct(v interface{}) protocol.ToolInputSchema {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	props := map[string]protocol.PropertyDetail{}
	var required []string

	if t.Kind() != reflect.Struct {
		return protocol.ToolInputSchema{Type: "object", Properties: props}
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := strings.Split(jsonTag, ",")[0]
		if name == "" {
			name = strings.ToLower(field.Name)
		}

		fieldType := field.Type
		isPtr := fieldType.Kind() == reflect.Ptr
		if isPtr {
			fieldType = fieldType.Elem()
		}
		if !isPtr {
			required = append(required, name)
		}

		detail := protocol.PropertyDetail{
			Type:        goTypeToSchemaType(fieldType.Kind()),
			Description: field.Tag.Get("description"),
		}
		if enumTag := field.Tag.Get("enum"); enumTag != "" {
			for _, ev := range strings.Split(enumTag, ",") {
				detail.Enum = append(detail.Enum, strings.TrimSpace(ev))
			}
		}
		if fieldType.Kind() == reflect.Slice || fieldType.Kind() == reflect.Array {
			detail.Items = &protocol.PropertyDetail{Type: goTypeToSchemaType(fieldType.Elem().Kind())}
		}
		props[name] = detail
	}

	schema := protocol.ToolInputSchema{Type: "object", Properties: props}
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

// DecodeArgs decodes a raw argument map into a typed struct, tolerating
// stringly-typed numbers the way LLM-produced arguments often arrive.
func DecodeArgs(raw map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
