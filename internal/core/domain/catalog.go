package domain

import (
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed channels.yaml
var channelsYAML []byte

const defaultDecimals = 2

type ChannelMeta struct {
	Name        string `yaml:"name"`
	Label       string `yaml:"label"`
	DeviceClass string `yaml:"device_class"`
	StateClass  string `yaml:"state_class"`
	Decimals    *uint  `yaml:"decimals"`
	Icon        string `yaml:"icon"`
	Disabled    bool   `yaml:"disabled"`
	Diagnostic  bool   `yaml:"diagnostic"`
}

type ChannelCatalog struct {
	byName map[string]ChannelMeta
}

var (
	catalogOnce sync.Once
	catalog     *ChannelCatalog
)

// ParseChannelCatalog reads a catalog document with a top level "channels" list.
func ParseChannelCatalog(data []byte) (*ChannelCatalog, error) {
	var doc struct {
		Channels []ChannelMeta `yaml:"channels"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse channel catalog")
	}
	c := &ChannelCatalog{byName: make(map[string]ChannelMeta, len(doc.Channels))}
	for _, m := range doc.Channels {
		if m.Name == "" {
			return nil, errors.New("channel catalog entry without name")
		}
		c.byName[m.Name] = m
	}
	return c, nil
}

// Channels returns the embedded catalog.
func Channels() *ChannelCatalog {
	catalogOnce.Do(func() {
		c, err := ParseChannelCatalog(channelsYAML)
		if err != nil {
			panic(err)
		}
		catalog = c
	})
	return catalog
}

// Lookup never fails: unknown channels get a measurement entry labelled with
// their own name.
func (c *ChannelCatalog) Lookup(name string) ChannelMeta {
	if m, ok := c.byName[name]; ok {
		if m.Label == "" {
			m.Label = name
		}
		return m
	}
	return ChannelMeta{
		Name:       name,
		Label:      name,
		StateClass: STATE_CLASS_MEASUREMENT,
	}
}

func (m ChannelMeta) DecimalPlaces() uint {
	if m.Decimals == nil {
		return defaultDecimals
	}
	return *m.Decimals
}
