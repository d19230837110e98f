package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/magiconair/properties"
	"github.com/spf13/viper"
)

const propertiesFormat = "properties"

// propertiesCodec decodes Java style properties files into the nested map
// viper expects, splitting keys on dots.
type propertiesCodec struct{}

func (propertiesCodec) Decode(b []byte, v map[string]any) error {
	props, err := properties.Load(b, properties.UTF8)
	if err != nil {
		return err
	}

	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		path := strings.Split(key, ".")
		parent := v
		for _, segment := range path[:len(path)-1] {
			child, ok := parent[segment].(map[string]any)
			if !ok {
				child = map[string]any{}
				parent[segment] = child
			}
			parent = child
		}
		parent[path[len(path)-1]] = value
	}
	return nil
}

func (propertiesCodec) Encode(v map[string]any) ([]byte, error) {
	flat := map[string]string{}
	flatten("", v, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := properties.NewProperties()
	for _, k := range keys {
		if _, _, err := props.Set(k, flat[k]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := props.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatten(prefix string, v map[string]any, out map[string]string) {
	for k, val := range v {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = fmt.Sprint(val)
	}
}

func propertiesCodecRegistry() (*viper.DefaultCodecRegistry, error) {
	registry := viper.NewCodecRegistry()
	if err := registry.RegisterCodec(propertiesFormat, propertiesCodec{}); err != nil {
		return nil, err
	}
	return registry, nil
}
